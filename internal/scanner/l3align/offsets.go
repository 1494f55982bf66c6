package l3align

import "github.com/banshee-data/beacon.report/internal/scanner/l2geometry"

// OffsetIndex is the set of vectors point − anchor for every point of a
// cloud. Two clouds related by a pure translation produce identical indexes
// when anchored on the same physical beacon, which is what makes overlap
// detectable without knowing the translation.
type OffsetIndex struct {
	anchor  l2geometry.Beacon
	offsets map[l2geometry.Beacon]struct{}
}

// NewOffsetIndex indexes cloud relative to anchor. The anchor is normally a
// member of the cloud, in which case the index contains the zero offset.
func NewOffsetIndex(cloud []l2geometry.Beacon, anchor l2geometry.Beacon) *OffsetIndex {
	idx := &OffsetIndex{
		anchor:  anchor,
		offsets: make(map[l2geometry.Beacon]struct{}, len(cloud)),
	}
	for _, p := range cloud {
		idx.offsets[p.Sub(anchor)] = struct{}{}
	}
	return idx
}

// Anchor returns the point the offsets are measured from.
func (idx *OffsetIndex) Anchor() l2geometry.Beacon { return idx.anchor }

// Len returns the number of distinct offsets.
func (idx *OffsetIndex) Len() int { return len(idx.offsets) }

// Contains reports whether offset is in the index.
func (idx *OffsetIndex) Contains(offset l2geometry.Beacon) bool {
	_, ok := idx.offsets[offset]
	return ok
}

// Overlap returns the size of the intersection of the two offset sets.
func (idx *OffsetIndex) Overlap(other *OffsetIndex) int {
	small, large := idx, other
	if large.Len() < small.Len() {
		small, large = large, small
	}
	n := 0
	for off := range small.offsets {
		if large.Contains(off) {
			n++
		}
	}
	return n
}

// IndexAll builds one index per anchor in cloud, in cloud order.
func IndexAll(cloud []l2geometry.Beacon) []*OffsetIndex {
	out := make([]*OffsetIndex, len(cloud))
	for i, anchor := range cloud {
		out[i] = NewOffsetIndex(cloud, anchor)
	}
	return out
}
