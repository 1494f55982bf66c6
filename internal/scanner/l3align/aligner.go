package l3align

import (
	"errors"
	"fmt"

	"github.com/banshee-data/beacon.report/internal/scanner/l2geometry"
)

// DefaultThreshold is the number of coincident beacons two scanners must
// share before they are considered to observe the same region.
const DefaultThreshold = 12

// ErrInvalidThreshold is returned by NewAligner for thresholds below 1.
var ErrInvalidThreshold = errors.New("overlap threshold must be at least 1")

// Match is an accepted alignment of a candidate cloud onto a reference
// cloud: rotate the candidate by Rotation, then translate by Translation.
// Translation is also the candidate scanner's origin in the reference frame.
type Match struct {
	RotationIndex int
	Rotation      l2geometry.Rotation
	Translation   l2geometry.Beacon
	// Overlap counts the coincident beacons, the shared anchor included.
	Overlap int

	ReferenceAnchor l2geometry.Beacon
	CandidateAnchor l2geometry.Beacon
}

// Apply maps local candidate points into the reference frame.
func (m Match) Apply(points []l2geometry.Beacon) []l2geometry.Beacon {
	out := make([]l2geometry.Beacon, len(points))
	for i, p := range points {
		out[i] = m.Rotation.Apply(p).Add(m.Translation)
	}
	return out
}

// Transform returns the match as a row-major 4x4 rigid transform.
func (m Match) Transform() [16]float64 {
	return m.Rotation.Transform(m.Translation)
}

// Aligner searches the rotation × anchor-pair space for an overlap of at
// least Threshold beacons. The zero value is not usable; use NewAligner.
type Aligner struct {
	threshold int
	rotations []l2geometry.Rotation
}

// NewAligner returns an aligner over the full rotation table.
func NewAligner(threshold int) (*Aligner, error) {
	if threshold < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidThreshold, threshold)
	}
	return &Aligner{
		threshold: threshold,
		rotations: l2geometry.Rotations[:],
	}, nil
}

// Threshold returns the minimum overlap the aligner accepts.
func (a *Aligner) Threshold() int { return a.threshold }

// Align looks for a rotation and translation that places at least
// Threshold of candidate's local beacons exactly onto reference beacons.
//
// Search order is fixed: rotations in table order, then reference anchors,
// then candidate anchors, each in slice order. The first combination that
// clears the threshold wins. ok is false when nothing does; that is the
// normal "no match" outcome, not an error.
func (a *Aligner) Align(reference, candidate []l2geometry.Beacon) (m Match, ok bool) {
	if len(reference) < a.threshold || len(candidate) < a.threshold {
		tracef("skip: reference=%d candidate=%d below threshold %d", len(reference), len(candidate), a.threshold)
		return Match{}, false
	}

	refIndexes := IndexAll(reference)
	for ri, rot := range a.rotations {
		rotated := rot.ApplyAll(candidate)
		candIndexes := IndexAll(rotated)

		best := 0
		for _, refIdx := range refIndexes {
			for _, candIdx := range candIndexes {
				overlap := refIdx.Overlap(candIdx)
				if overlap >= a.threshold {
					m = Match{
						RotationIndex:   ri,
						Rotation:        rot,
						Translation:     refIdx.Anchor().Sub(candIdx.Anchor()),
						Overlap:         overlap,
						ReferenceAnchor: refIdx.Anchor(),
						CandidateAnchor: candIdx.Anchor(),
					}
					diagf("match: rotation=%d %s translation=%s overlap=%d", ri, rot, m.Translation, overlap)
					return m, true
				}
				if overlap > best {
					best = overlap
				}
			}
		}
		tracef("rotation %d %s: best overlap %d < %d", ri, rot, best, a.threshold)
	}
	return Match{}, false
}

// CountCoincident returns how many points of a also appear in b.
func CountCoincident(a, b []l2geometry.Beacon) int {
	set := make(map[l2geometry.Beacon]struct{}, len(b))
	for _, p := range b {
		set[p] = struct{}{}
	}
	n := 0
	for _, p := range a {
		if _, ok := set[p]; ok {
			n++
		}
	}
	return n
}

// Verification is the result of checking an accepted match against both
// clouds in full.
type Verification struct {
	// Coincident counts candidate beacons that land on reference beacons.
	Coincident int
	// Unexplained counts beacons of either cloud that fall inside the
	// other's observed extent without coinciding with one of its beacons.
	// A scanner sees every beacon within its extent, so a correct match
	// leaves none.
	Unexplained int
}

// Consistent reports whether the match explains every beacon both clouds
// should have seen in common.
func (v Verification) Consistent() bool { return v.Unexplained == 0 }

// Verify checks m beyond the matched subset: after placing candidate in the
// reference frame, no beacon of one cloud may sit unobserved inside the
// extent of the other. An inconsistent match is reported on the ops stream.
func (a *Aligner) Verify(m Match, reference, candidate []l2geometry.Beacon) Verification {
	placed := m.Apply(candidate)
	v := Verification{
		Coincident:  CountCoincident(placed, reference),
		Unexplained: countUnexplained(placed, reference) + countUnexplained(reference, placed),
	}
	if !v.Consistent() {
		opsf("match inconsistent: rotation=%d translation=%s coincident=%d unexplained=%d",
			m.RotationIndex, m.Translation, v.Coincident, v.Unexplained)
	}
	return v
}

// countUnexplained counts points inside the bounding box of observed that
// are not themselves observed.
func countUnexplained(points, observed []l2geometry.Beacon) int {
	if len(observed) == 0 {
		return 0
	}
	lo, hi := observed[0], observed[0]
	set := make(map[l2geometry.Beacon]struct{}, len(observed))
	for _, p := range observed {
		set[p] = struct{}{}
		lo = l2geometry.Beacon{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = l2geometry.Beacon{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	n := 0
	for _, p := range points {
		if p.X < lo.X || p.X > hi.X || p.Y < lo.Y || p.Y > hi.Y || p.Z < lo.Z || p.Z > hi.Z {
			continue
		}
		if _, ok := set[p]; !ok {
			n++
		}
	}
	return n
}
