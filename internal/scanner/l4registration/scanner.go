package l4registration

import (
	"fmt"

	"github.com/banshee-data/beacon.report/internal/scanner/l2geometry"
)

// State is a scanner's registration state.
type State int

const (
	// Unregistered scanners have no resolved pose yet.
	Unregistered State = iota
	// Registered scanners have a fixed pose in the global frame.
	Registered
)

func (s State) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case Registered:
		return "registered"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Scanner is one sensor's report. Its local beacons never change; once
// registered, its pose is fixed and its global beacons are derived from the
// local ones by rotating and then translating.
type Scanner struct {
	ID    int
	local []l2geometry.Beacon

	state         State
	position      l2geometry.Beacon
	rotationIndex int
	global        []l2geometry.Beacon
}

// NewScanner copies beacons into a new unregistered scanner.
func NewScanner(id int, beacons []l2geometry.Beacon) *Scanner {
	local := make([]l2geometry.Beacon, len(beacons))
	copy(local, beacons)
	return &Scanner{ID: id, local: local, rotationIndex: -1}
}

// Local returns a copy of the beacons in the scanner's own frame.
func (s *Scanner) Local() []l2geometry.Beacon {
	out := make([]l2geometry.Beacon, len(s.local))
	copy(out, s.local)
	return out
}

// State returns the registration state.
func (s *Scanner) State() State { return s.state }

// Registered reports whether the scanner has a pose.
func (s *Scanner) Registered() bool { return s.state == Registered }

// Pose returns the scanner's global position and rotation index. ok is
// false while the scanner is unregistered.
func (s *Scanner) Pose() (position l2geometry.Beacon, rotationIndex int, ok bool) {
	if s.state != Registered {
		return l2geometry.Beacon{}, -1, false
	}
	return s.position, s.rotationIndex, true
}

// Global returns the beacons in the global frame, or nil if unregistered.
func (s *Scanner) Global() []l2geometry.Beacon {
	if s.state != Registered {
		return nil
	}
	out := make([]l2geometry.Beacon, len(s.global))
	copy(out, s.global)
	return out
}

// register fixes the pose. It succeeds exactly once per scanner.
func (s *Scanner) register(position l2geometry.Beacon, rotationIndex int) error {
	if s.state == Registered {
		return fmt.Errorf("scanner %d: %w", s.ID, ErrAlreadyRegistered)
	}
	rot, err := l2geometry.RotationAt(rotationIndex)
	if err != nil {
		return fmt.Errorf("scanner %d: %w", s.ID, err)
	}

	global := make([]l2geometry.Beacon, len(s.local))
	for i, p := range s.local {
		global[i] = rot.Apply(p).Add(position)
	}
	s.position = position
	s.rotationIndex = rotationIndex
	s.global = global
	s.state = Registered
	return nil
}
