package monitor

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/beacon.report/internal/scanner/l2geometry"
	"github.com/banshee-data/beacon.report/internal/scanner/l4registration"
)

// ErrNoResult is returned when there is nothing to draw.
var ErrNoResult = errors.New("no reconstruction result")

// viridis ramp for the Z visual map.
var zColors = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// extent tracks the largest absolute X/Y and the Z range of a point set.
type extent struct {
	maxAbs     float64
	minZ, maxZ int
	seen       bool
}

func (e *extent) add(b l2geometry.Beacon) {
	for _, v := range []int{b.X, b.Y} {
		if f := float64(abs(v)); f > e.maxAbs {
			e.maxAbs = f
		}
	}
	if !e.seen || b.Z < e.minZ {
		e.minZ = b.Z
	}
	if !e.seen || b.Z > e.maxZ {
		e.maxZ = b.Z
	}
	e.seen = true
}

func (e *extent) pad() float64 {
	p := e.maxAbs * 1.05
	if p == 0 {
		p = 1.0
	}
	return p
}

// RenderChart writes an HTML scatter of res projected onto the XY plane.
// Beacons and scanners are separate series; Z rides along as the third
// value and drives the colour map.
func RenderChart(w io.Writer, title string, res *l4registration.Result) error {
	if res == nil {
		return ErrNoResult
	}
	if title == "" {
		title = "Beacon Map"
	}

	var ext extent
	beacons := make([]opts.ScatterData, 0, len(res.Beacons))
	for _, b := range res.Beacons {
		ext.add(b)
		beacons = append(beacons, opts.ScatterData{Value: []interface{}{b.X, b.Y, b.Z}})
	}
	scanners := make([]opts.ScatterData, 0, len(res.Placements))
	for _, p := range res.Placements {
		ext.add(p.Position)
		scanners = append(scanners, opts.ScatterData{
			Name:  fmt.Sprintf("scanner %d", p.ScannerID),
			Value: []interface{}{p.Position.X, p.Position.Y, p.Position.Z},
		})
	}
	pad := ext.pad()
	maxZ := ext.maxZ
	if maxZ == ext.minZ {
		maxZ = ext.minZ + 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("reference=%d beacons=%d scanners=%d max_distance=%d", res.ReferenceID, res.BeaconCount, len(res.Placements), res.MaxScannerDistance()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(ext.minZ),
			Max:        float32(maxZ),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: zColors},
		}),
	)
	scatter.AddSeries("beacons", beacons, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	scatter.AddSeries("scanners", scanners, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 16}))
	return scatter.Render(w)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
