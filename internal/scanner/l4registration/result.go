package l4registration

import (
	"sort"

	"github.com/banshee-data/beacon.report/internal/scanner/l2geometry"
)

// NoAlignment is the AlignedTo value of the reference scanner. Scanner IDs
// are non-negative, so it never names a real scanner.
const NoAlignment = -1

// Placement is a registered scanner's resolved pose.
type Placement struct {
	ScannerID     int                 `json:"scanner_id"`
	Position      l2geometry.Beacon   `json:"position"`
	RotationIndex int                 `json:"rotation_index"`
	Rotation      l2geometry.Rotation `json:"-"`
	// AlignedTo is the scanner this one was registered against, or
	// NoAlignment for the reference scanner.
	AlignedTo   int `json:"aligned_to"`
	BeaconCount int `json:"beacon_count"`
}

// Result is the read-only outcome of a completed reconstruction.
type Result struct {
	ReferenceID int                 `json:"reference_id"`
	Threshold   int                 `json:"threshold"`
	BeaconCount int                 `json:"beacon_count"`
	Beacons     []l2geometry.Beacon `json:"beacons"`
	Placements  []Placement         `json:"placements"`
	Passes      int                 `json:"passes"`
	Attempts    int                 `json:"attempts"`
}

// Placement returns the pose of scanner id.
func (r *Result) Placement(id int) (Placement, bool) {
	i := sort.Search(len(r.Placements), func(i int) bool { return r.Placements[i].ScannerID >= id })
	if i < len(r.Placements) && r.Placements[i].ScannerID == id {
		return r.Placements[i], true
	}
	return Placement{}, false
}

// MaxScannerDistance is the largest Manhattan distance between any two
// scanner positions.
func (r *Result) MaxScannerDistance() int {
	best := 0
	for i := range r.Placements {
		for j := i + 1; j < len(r.Placements); j++ {
			if d := r.Placements[i].Position.Manhattan(r.Placements[j].Position); d > best {
				best = d
			}
		}
	}
	return best
}

func sortPlacements(ps []Placement) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ScannerID < ps[j].ScannerID })
}
