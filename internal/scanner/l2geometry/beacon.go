package l2geometry

import (
	"fmt"
	"sort"
)

// Beacon is an exact integer point in some scanner's frame. It doubles as a
// translation or offset vector; two beacons are the same beacon iff all three
// components are equal, so Beacon is usable directly as a map key.
type Beacon struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	Z int `json:"z" yaml:"z"`
}

// Origin is the zero vector.
var Origin = Beacon{}

// Add returns b + o.
func (b Beacon) Add(o Beacon) Beacon {
	return Beacon{X: b.X + o.X, Y: b.Y + o.Y, Z: b.Z + o.Z}
}

// Sub returns b - o.
func (b Beacon) Sub(o Beacon) Beacon {
	return Beacon{X: b.X - o.X, Y: b.Y - o.Y, Z: b.Z - o.Z}
}

// Component returns the i-th coordinate (0=X, 1=Y, 2=Z).
func (b Beacon) Component(i int) int {
	switch i {
	case 0:
		return b.X
	case 1:
		return b.Y
	case 2:
		return b.Z
	}
	panic(fmt.Sprintf("l2geometry: component index %d out of range", i))
}

// AbsComponents returns |X|, |Y|, |Z| sorted ascending.
func (b Beacon) AbsComponents() [3]int {
	out := [3]int{abs(b.X), abs(b.Y), abs(b.Z)}
	sort.Ints(out[:])
	return out
}

// Manhattan returns the L1 distance between b and o.
func (b Beacon) Manhattan(o Beacon) int {
	d := b.Sub(o)
	return abs(d.X) + abs(d.Y) + abs(d.Z)
}

// Less orders beacons by X, then Y, then Z.
func (b Beacon) Less(o Beacon) bool {
	if b.X != o.X {
		return b.X < o.X
	}
	if b.Y != o.Y {
		return b.Y < o.Y
	}
	return b.Z < o.Z
}

// String formats the beacon the way the input file does: "x,y,z".
func (b Beacon) String() string {
	return fmt.Sprintf("%d,%d,%d", b.X, b.Y, b.Z)
}

// SortBeacons sorts in place using Less.
func SortBeacons(bs []Beacon) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].Less(bs[j]) })
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
