package l2geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NumRotations is the size of the rotation group of the cube.
const NumRotations = 24

// MatrixValidationTolerance is the tolerance for checking rotation matrix validity.
const MatrixValidationTolerance = 1e-9

// Rotation is an axis permutation combined with a per-axis sign. Output
// component i is Sign[i] * p[Perm[i]].
type Rotation struct {
	Perm [3]int
	Sign [3]int
}

// Identity leaves every point unchanged.
var Identity = Rotation{Perm: [3]int{0, 1, 2}, Sign: [3]int{1, 1, 1}}

// Rotations enumerates the 24 proper rotations. Index 0 is Identity. Each
// group of three shares a sign pattern: cyclic permutations first, then the
// transpositions with the last sign flipped so the determinant stays +1.
var Rotations = [NumRotations]Rotation{
	{Perm: [3]int{0, 1, 2}, Sign: [3]int{1, 1, 1}},
	{Perm: [3]int{1, 2, 0}, Sign: [3]int{1, 1, 1}},
	{Perm: [3]int{2, 0, 1}, Sign: [3]int{1, 1, 1}},
	{Perm: [3]int{2, 1, 0}, Sign: [3]int{1, 1, -1}},
	{Perm: [3]int{1, 0, 2}, Sign: [3]int{1, 1, -1}},
	{Perm: [3]int{0, 2, 1}, Sign: [3]int{1, 1, -1}},
	{Perm: [3]int{0, 1, 2}, Sign: [3]int{1, -1, -1}},
	{Perm: [3]int{1, 2, 0}, Sign: [3]int{1, -1, -1}},
	{Perm: [3]int{2, 0, 1}, Sign: [3]int{1, -1, -1}},
	{Perm: [3]int{2, 1, 0}, Sign: [3]int{1, -1, 1}},
	{Perm: [3]int{1, 0, 2}, Sign: [3]int{1, -1, 1}},
	{Perm: [3]int{0, 2, 1}, Sign: [3]int{1, -1, 1}},
	{Perm: [3]int{0, 1, 2}, Sign: [3]int{-1, 1, -1}},
	{Perm: [3]int{1, 2, 0}, Sign: [3]int{-1, 1, -1}},
	{Perm: [3]int{2, 0, 1}, Sign: [3]int{-1, 1, -1}},
	{Perm: [3]int{2, 1, 0}, Sign: [3]int{-1, 1, 1}},
	{Perm: [3]int{1, 0, 2}, Sign: [3]int{-1, 1, 1}},
	{Perm: [3]int{0, 2, 1}, Sign: [3]int{-1, 1, 1}},
	{Perm: [3]int{0, 1, 2}, Sign: [3]int{-1, -1, 1}},
	{Perm: [3]int{1, 2, 0}, Sign: [3]int{-1, -1, 1}},
	{Perm: [3]int{2, 0, 1}, Sign: [3]int{-1, -1, 1}},
	{Perm: [3]int{2, 1, 0}, Sign: [3]int{-1, -1, -1}},
	{Perm: [3]int{1, 0, 2}, Sign: [3]int{-1, -1, -1}},
	{Perm: [3]int{0, 2, 1}, Sign: [3]int{-1, -1, -1}},
}

// RotationAt returns the rotation with the given table index.
func RotationAt(i int) (Rotation, error) {
	if i < 0 || i >= NumRotations {
		return Rotation{}, fmt.Errorf("rotation index %d out of range [0,%d)", i, NumRotations)
	}
	return Rotations[i], nil
}

// IndexOf returns the table index of r, or -1 if r is not in the table.
func IndexOf(r Rotation) int {
	for i, c := range Rotations {
		if c == r {
			return i
		}
	}
	return -1
}

// Apply rotates p.
func (r Rotation) Apply(p Beacon) Beacon {
	return Beacon{
		X: r.Sign[0] * p.Component(r.Perm[0]),
		Y: r.Sign[1] * p.Component(r.Perm[1]),
		Z: r.Sign[2] * p.Component(r.Perm[2]),
	}
}

// ApplyAll rotates every point into a new slice.
func (r Rotation) ApplyAll(points []Beacon) []Beacon {
	out := make([]Beacon, len(points))
	for i, p := range points {
		out[i] = r.Apply(p)
	}
	return out
}

// Matrix returns the 3x3 matrix M such that Apply(p) == M·p.
func (r Rotation) Matrix() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for row := 0; row < 3; row++ {
		m.Set(row, r.Perm[row], float64(r.Sign[row]))
	}
	return m
}

// Determinant is +1 for a proper rotation and -1 for a reflection.
func (r Rotation) Determinant() float64 {
	return mat.Det(r.Matrix())
}

// Transform returns the row-major 4x4 rigid transform that rotates by r and
// then translates by t.
func (r Rotation) Transform(t Beacon) [16]float64 {
	var T [16]float64
	for row := 0; row < 3; row++ {
		T[row*4+r.Perm[row]] = float64(r.Sign[row])
		T[row*4+3] = float64(t.Component(row))
	}
	T[15] = 1
	return T
}

// ApplyTransform applies a row-major 4x4 transform to p and rounds back to
// integer coordinates.
func ApplyTransform(T [16]float64, p Beacon) Beacon {
	x, y, z := float64(p.X), float64(p.Y), float64(p.Z)
	return Beacon{
		X: int(math.Round(T[0]*x + T[1]*y + T[2]*z + T[3])),
		Y: int(math.Round(T[4]*x + T[5]*y + T[6]*z + T[7])),
		Z: int(math.Round(T[8]*x + T[9]*y + T[10]*z + T[11])),
	}
}

// IsValidTransformMatrix checks if a 4x4 matrix is a rigid transform with a
// proper rotation block: orthonormal rows, det = +1 and last row [0 0 0 1].
func IsValidTransformMatrix(T [16]float64) bool {
	rot := mat.NewDense(3, 3, []float64{
		T[0], T[1], T[2],
		T[4], T[5], T[6],
		T[8], T[9], T[10],
	})
	if math.Abs(mat.Det(rot)-1) > MatrixValidationTolerance {
		return false
	}

	var rrt mat.Dense
	rrt.Mul(rot, rot.T())
	if !mat.EqualApprox(&rrt, eye3(), MatrixValidationTolerance) {
		return false
	}

	return T[12] == 0 && T[13] == 0 && T[14] == 0 && math.Abs(T[15]-1) <= MatrixValidationTolerance
}

// ValidateRotations checks that the table holds exactly the 24 proper
// rotations: every entry a signed permutation, det +1, and no duplicates.
func ValidateRotations() error {
	seen := make(map[Rotation]int, NumRotations)
	for i, r := range Rotations {
		if prev, dup := seen[r]; dup {
			return fmt.Errorf("rotation %d duplicates rotation %d", i, prev)
		}
		seen[r] = i

		var used [3]bool
		for axis := 0; axis < 3; axis++ {
			p := r.Perm[axis]
			if p < 0 || p > 2 || used[p] {
				return fmt.Errorf("rotation %d: perm %v is not a permutation", i, r.Perm)
			}
			used[p] = true
			if s := r.Sign[axis]; s != 1 && s != -1 {
				return fmt.Errorf("rotation %d: sign %v must be ±1", i, r.Sign)
			}
		}

		if det := r.Determinant(); math.Abs(det-1) > MatrixValidationTolerance {
			return fmt.Errorf("rotation %d: determinant %.0f, reflections are not allowed", i, det)
		}
	}
	if Rotations[0] != Identity {
		return fmt.Errorf("rotation 0 must be the identity")
	}
	return nil
}

// String renders the rotation as a signed axis mapping, e.g. "(x,-z,y)".
func (r Rotation) String() string {
	axes := [3]string{"x", "y", "z"}
	out := "("
	for i := 0; i < 3; i++ {
		if i > 0 {
			out += ","
		}
		if r.Sign[i] < 0 {
			out += "-"
		}
		out += axes[r.Perm[i]]
	}
	return out + ")"
}

func eye3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}
