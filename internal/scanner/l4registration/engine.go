package l4registration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/beacon.report/internal/scanner/l1records"
	"github.com/banshee-data/beacon.report/internal/scanner/l2geometry"
	"github.com/banshee-data/beacon.report/internal/scanner/l3align"
)

var (
	// ErrNoScanners is returned when the engine is built from no records.
	ErrNoScanners = errors.New("no scanners to register")
	// ErrDuplicateScanner is returned when two records share a scanner ID.
	ErrDuplicateScanner = errors.New("duplicate scanner id")
	// ErrInvalidScannerID is returned for negative scanner IDs, which would
	// collide with NoAlignment.
	ErrInvalidScannerID = errors.New("invalid scanner id")
	// ErrUnknownReference is returned when the requested reference scanner is not in the input.
	ErrUnknownReference = errors.New("reference scanner not found")
	// ErrRegistrationStalled is returned when a full pass registers nothing:
	// the overlap graph is disconnected or the threshold cannot be met.
	ErrRegistrationStalled = errors.New("registration stalled")
	// ErrAlreadyRegistered is returned when a scanner's pose is assigned twice.
	ErrAlreadyRegistered = errors.New("scanner already registered")
	// ErrNotComplete is returned when results are requested before Run succeeds.
	ErrNotComplete = errors.New("registration not complete")
)

// Options configures an Engine.
type Options struct {
	// Threshold is the minimum overlap; 0 selects l3align.DefaultThreshold.
	Threshold int
	// ReferenceID selects the scanner that defines the global frame. Nil
	// selects the first record.
	ReferenceID *int
	// Workers > 1 evaluates each pass concurrently against a snapshot of
	// the registered set. 0 and 1 run sequentially.
	Workers int
}

type pairKey struct {
	candidate, reference int
}

// Engine registers every scanner into the frame of the reference scanner.
// It owns the registered/unregistered partition and the global BeaconSet;
// an Engine drives a single reconstruction and is not reusable.
type Engine struct {
	aligner *l3align.Aligner
	workers int

	scanners     []*Scanner
	referenceID  int
	registered   []*Scanner
	unregistered []*Scanner
	alignedTo    map[int]int
	beacons      *BeaconSet

	// mu guards commits and the bookkeeping below while a parallel pass runs.
	mu       sync.Mutex
	tried    map[pairKey]struct{}
	passes   int
	attempts int
	done     bool
}

// NewEngine validates records and seeds the reference scanner at the origin
// with the identity rotation.
func NewEngine(records []l1records.Record, opts Options) (*Engine, error) {
	if len(records) == 0 {
		return nil, ErrNoScanners
	}

	threshold := opts.Threshold
	if threshold == 0 {
		threshold = l3align.DefaultThreshold
	}
	aligner, err := l3align.NewAligner(threshold)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		aligner:   aligner,
		workers:   opts.Workers,
		alignedTo: make(map[int]int),
		beacons:   NewBeaconSet(),
		tried:     make(map[pairKey]struct{}),
	}

	seen := make(map[int]bool, len(records))
	for _, rec := range records {
		if rec.ID < 0 {
			return nil, fmt.Errorf("%w: %d is negative", ErrInvalidScannerID, rec.ID)
		}
		if seen[rec.ID] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateScanner, rec.ID)
		}
		seen[rec.ID] = true
		e.scanners = append(e.scanners, NewScanner(rec.ID, rec.Beacons))
	}

	e.referenceID = records[0].ID
	if opts.ReferenceID != nil {
		e.referenceID = *opts.ReferenceID
	}
	if !seen[e.referenceID] {
		return nil, fmt.Errorf("%w: %d", ErrUnknownReference, e.referenceID)
	}

	for _, s := range e.scanners {
		if s.ID != e.referenceID {
			e.unregistered = append(e.unregistered, s)
			continue
		}
		if err := s.register(l2geometry.Origin, 0); err != nil {
			return nil, err
		}
		e.registered = append(e.registered, s)
		e.alignedTo[s.ID] = NoAlignment
		e.beacons.InsertAll(s.global)
	}
	return e, nil
}

// Run registers scanners until none remain. Sequential runs re-scan the
// unregistered list from the top after every registration. A pass that
// registers nothing fails with ErrRegistrationStalled.
func (e *Engine) Run(ctx context.Context) error {
	if e.done {
		return nil
	}
	for len(e.unregistered) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.passes++

		var (
			n   int
			err error
		)
		if e.workers > 1 {
			n, err = e.parallelPass(ctx)
		} else {
			n, err = e.sequentialPass()
		}
		if err != nil {
			return err
		}
		if n == 0 {
			ids := e.UnregisteredIDs()
			opsf("stalled after %d passes: %d scanner(s) unplaced %v", e.passes, len(ids), ids)
			return fmt.Errorf("%w: scanners %v have no overlap path to scanner %d", ErrRegistrationStalled, ids, e.referenceID)
		}
		diagf("pass %d: registered %d, %d remaining", e.passes, n, len(e.unregistered))
	}
	e.done = true
	diagf("registration complete: %d scanners, %d beacons, %d attempts", len(e.scanners), e.beacons.Len(), e.attempts)
	return nil
}

// sequentialPass stops at the first successful registration so the caller
// restarts from the top of the unregistered list.
func (e *Engine) sequentialPass() (int, error) {
	for _, cand := range e.unregistered {
		for _, ref := range e.registered {
			m, ok := e.attempt(cand, ref)
			if !ok {
				continue
			}
			if err := e.commit(cand, ref.ID, m); err != nil {
				return 0, err
			}
			return 1, nil
		}
	}
	return 0, nil
}

type pending struct {
	match l3align.Match
	refID int
}

// parallelPass evaluates every unregistered scanner against the registered
// snapshot taken at pass start and commits all successes afterwards, in
// input order.
func (e *Engine) parallelPass(ctx context.Context) (int, error) {
	snapshot := append([]*Scanner(nil), e.registered...)
	candidates := append([]*Scanner(nil), e.unregistered...)
	results := make([]*pending, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, cand := range candidates {
		g.Go(func() error {
			for _, ref := range snapshot {
				if err := gctx.Err(); err != nil {
					return err
				}
				if m, ok := e.attempt(cand, ref); ok {
					results[i] = &pending{match: m, refID: ref.ID}
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n := 0
	for i, res := range results {
		if res == nil {
			continue
		}
		if err := e.commit(candidates[i], res.refID, res.match); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// attempt aligns cand against ref unless that pair already failed. Failed
// pairs are remembered: ref's global beacons never change, so the outcome
// would not either.
func (e *Engine) attempt(cand, ref *Scanner) (l3align.Match, bool) {
	key := pairKey{candidate: cand.ID, reference: ref.ID}
	e.mu.Lock()
	_, skip := e.tried[key]
	if !skip {
		e.attempts++
	}
	e.mu.Unlock()
	if skip {
		return l3align.Match{}, false
	}

	m, ok := e.aligner.Align(ref.global, cand.local)
	tracef("attempt scanner %d against %d: ok=%t", cand.ID, ref.ID, ok)
	if ok {
		// First match wins; Verify reports one that leaves beacons
		// unexplained in either cloud.
		e.aligner.Verify(m, ref.global, cand.local)
		return m, true
	}
	e.mu.Lock()
	e.tried[key] = struct{}{}
	e.mu.Unlock()
	return m, false
}

// commit moves cand from the unregistered to the registered set and folds
// its global beacons into the beacon set.
func (e *Engine) commit(cand *Scanner, refID int, m l3align.Match) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := cand.register(m.Translation, m.RotationIndex); err != nil {
		return err
	}
	added := e.beacons.InsertAll(cand.global)
	e.registered = append(e.registered, cand)
	e.alignedTo[cand.ID] = refID
	for i, s := range e.unregistered {
		if s == cand {
			e.unregistered = append(e.unregistered[:i], e.unregistered[i+1:]...)
			break
		}
	}
	diagf("registered scanner %d via %d: position=%s rotation=%s overlap=%d new_beacons=%d",
		cand.ID, refID, m.Translation, m.Rotation, m.Overlap, added)
	return nil
}

// Scanner returns the scanner with the given ID.
func (e *Engine) Scanner(id int) (*Scanner, bool) {
	for _, s := range e.scanners {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Beacons returns the global beacon set.
func (e *Engine) Beacons() *BeaconSet { return e.beacons }

// RegisteredIDs returns scanner IDs in registration order.
func (e *Engine) RegisteredIDs() []int {
	ids := make([]int, len(e.registered))
	for i, s := range e.registered {
		ids[i] = s.ID
	}
	return ids
}

// UnregisteredIDs returns the IDs still awaiting registration, in input order.
func (e *Engine) UnregisteredIDs() []int {
	ids := make([]int, len(e.unregistered))
	for i, s := range e.unregistered {
		ids[i] = s.ID
	}
	return ids
}

// Result returns the reconstruction. It fails with ErrNotComplete unless Run
// has returned nil.
func (e *Engine) Result() (*Result, error) {
	if !e.done {
		return nil, ErrNotComplete
	}
	res := &Result{
		ReferenceID: e.referenceID,
		Threshold:   e.aligner.Threshold(),
		BeaconCount: e.beacons.Len(),
		Beacons:     e.beacons.Sorted(),
		Passes:      e.passes,
		Attempts:    e.attempts,
	}
	for _, s := range e.scanners {
		pos, ri, _ := s.Pose()
		res.Placements = append(res.Placements, Placement{
			ScannerID:     s.ID,
			Position:      pos,
			RotationIndex: ri,
			Rotation:      l2geometry.Rotations[ri],
			AlignedTo:     e.alignedTo[s.ID],
			BeaconCount:   len(s.local),
		})
	}
	sortPlacements(res.Placements)
	return res, nil
}

// Reconstruct builds an engine, runs it and returns its result.
func Reconstruct(ctx context.Context, records []l1records.Record, opts Options) (*Result, error) {
	e, err := NewEngine(records, opts)
	if err != nil {
		return nil, err
	}
	if err := e.Run(ctx); err != nil {
		return nil, err
	}
	return e.Result()
}
