package l4registration

import "github.com/banshee-data/beacon.report/internal/scanner/l2geometry"

// BeaconSet is the set of distinct beacons in the global frame. It only
// grows.
type BeaconSet struct {
	m map[l2geometry.Beacon]struct{}
}

// NewBeaconSet returns an empty set.
func NewBeaconSet() *BeaconSet {
	return &BeaconSet{m: make(map[l2geometry.Beacon]struct{})}
}

// Insert adds b and reports whether it was new. Inserting a beacon that is
// already present is a no-op.
func (s *BeaconSet) Insert(b l2geometry.Beacon) bool {
	if _, ok := s.m[b]; ok {
		return false
	}
	s.m[b] = struct{}{}
	return true
}

// InsertAll inserts every beacon and returns how many were new.
func (s *BeaconSet) InsertAll(bs []l2geometry.Beacon) int {
	added := 0
	for _, b := range bs {
		if s.Insert(b) {
			added++
		}
	}
	return added
}

// Contains reports whether b is in the set.
func (s *BeaconSet) Contains(b l2geometry.Beacon) bool {
	_, ok := s.m[b]
	return ok
}

// Len returns the number of distinct beacons.
func (s *BeaconSet) Len() int { return len(s.m) }

// Sorted returns the beacons in X, Y, Z order.
func (s *BeaconSet) Sorted() []l2geometry.Beacon {
	out := make([]l2geometry.Beacon, 0, len(s.m))
	for b := range s.m {
		out = append(out, b)
	}
	l2geometry.SortBeacons(out)
	return out
}
