package monitor

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/beacon.report/internal/scanner/l4registration"
)

// Plot dimensions.
const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 8 * vg.Inch
)

var (
	beaconColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	scannerColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	linkColor    = color.RGBA{R: 127, G: 127, B: 127, A: 160}
)

// newPlot builds the XY projection of res: beacons as dots, scanners as
// labelled crosses, and a line from each scanner to the one it aligned to.
func newPlot(res *l4registration.Result) (*plot.Plot, error) {
	if res == nil {
		return nil, ErrNoResult
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Beacons (reference scanner %d)", res.ReferenceID)
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewGrid())

	beaconPts := make(plotter.XYs, 0, len(res.Beacons))
	for _, b := range res.Beacons {
		beaconPts = append(beaconPts, plotter.XY{X: float64(b.X), Y: float64(b.Y)})
	}
	if len(beaconPts) > 0 {
		s, err := plotter.NewScatter(beaconPts)
		if err != nil {
			return nil, fmt.Errorf("beacon scatter: %w", err)
		}
		s.GlyphStyle.Color = beaconColor
		s.GlyphStyle.Radius = vg.Points(2)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add("beacons", s)
	}

	scannerPts := make(plotter.XYs, 0, len(res.Placements))
	labels := make([]string, 0, len(res.Placements))
	for _, pl := range res.Placements {
		scannerPts = append(scannerPts, plotter.XY{X: float64(pl.Position.X), Y: float64(pl.Position.Y)})
		labels = append(labels, strconv.Itoa(pl.ScannerID))

		if pl.AlignedTo == l4registration.NoAlignment {
			continue
		}
		ref, ok := res.Placement(pl.AlignedTo)
		if !ok {
			continue
		}
		link, err := plotter.NewLine(plotter.XYs{
			{X: float64(ref.Position.X), Y: float64(ref.Position.Y)},
			{X: float64(pl.Position.X), Y: float64(pl.Position.Y)},
		})
		if err != nil {
			return nil, fmt.Errorf("link %d->%d: %w", pl.ScannerID, pl.AlignedTo, err)
		}
		link.Color = linkColor
		link.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(link)
	}
	if len(scannerPts) > 0 {
		s, err := plotter.NewScatter(scannerPts)
		if err != nil {
			return nil, fmt.Errorf("scanner scatter: %w", err)
		}
		s.GlyphStyle.Color = scannerColor
		s.GlyphStyle.Radius = vg.Points(5)
		s.GlyphStyle.Shape = draw.CrossGlyph{}
		p.Add(s)
		p.Legend.Add("scanners", s)

		l, err := plotter.NewLabels(plotter.XYLabels{XYs: scannerPts, Labels: labels})
		if err != nil {
			return nil, fmt.Errorf("scanner labels: %w", err)
		}
		p.Add(l)
	}
	p.Legend.Top = true
	return p, nil
}

// SavePlot writes the XY projection of res to path. The image format follows
// the file extension (png, svg, pdf, ...).
func SavePlot(path string, res *l4registration.Result) error {
	p, err := newPlot(res)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

// WritePlotPNG streams the XY projection of res as a PNG.
func WritePlotPNG(w io.Writer, res *l4registration.Result) error {
	p, err := newPlot(res)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("plot writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
