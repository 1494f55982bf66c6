package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/beacon.report/internal/scanner/l2geometry"
	"github.com/banshee-data/beacon.report/internal/scanner/l4registration"
	"github.com/banshee-data/beacon.report/internal/timeutil"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run is a persisted reconstruction.
type Run struct {
	RunID       string `json:"run_id"`
	Source      string `json:"source"`
	ReferenceID int    `json:"reference_id"`
	Threshold   int    `json:"threshold"`
	BeaconCount int    `json:"beacon_count"`
	MaxDistance int    `json:"max_distance"`
	Passes      int    `json:"passes"`
	Attempts    int    `json:"attempts"`
	CreatedAt   int64  `json:"created_at"`

	// Placements and Beacons are empty in ListRuns summaries.
	Placements []l4registration.Placement `json:"placements,omitempty"`
	Beacons    []l2geometry.Beacon        `json:"beacons,omitempty"`
}

// RunFromResult converts a completed reconstruction into a Run ready to save.
func RunFromResult(source string, res *l4registration.Result) *Run {
	return &Run{
		Source:      source,
		ReferenceID: res.ReferenceID,
		Threshold:   res.Threshold,
		BeaconCount: res.BeaconCount,
		MaxDistance: res.MaxScannerDistance(),
		Passes:      res.Passes,
		Attempts:    res.Attempts,
		Placements:  append([]l4registration.Placement(nil), res.Placements...),
		Beacons:     append([]l2geometry.Beacon(nil), res.Beacons...),
	}
}

// RunStore persists runs.
type RunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRunStore creates a RunStore over an open, migrated database. It uses
// the database's clock.
func NewRunStore(db *DB) *RunStore {
	clock := db.clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RunStore{db: db.DB, clock: clock}
}

// SetClock replaces the clock used for CreatedAt stamps and busy backoff.
func (s *RunStore) SetClock(c timeutil.Clock) {
	s.clock = c
}

// SaveRun inserts run with its placements and beacons in one transaction.
// If RunID is empty, a UUID is generated; CreatedAt defaults to now.
func (s *RunStore) SaveRun(ctx context.Context, run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.clock.Now().UnixNano()
	}

	return retryOnBusy(s.clock, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin run transaction: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO scanner_runs (
				run_id, source, reference_id, threshold, beacon_count,
				max_distance, passes, attempts, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Source, run.ReferenceID, run.Threshold, run.BeaconCount,
			run.MaxDistance, run.Passes, run.Attempts, run.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		placeStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO scanner_placements (
				run_id, scanner_id, x, y, z, rotation_index, aligned_to, beacon_count
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare placement insert: %w", err)
		}
		defer placeStmt.Close()
		for _, p := range run.Placements {
			if _, err := placeStmt.ExecContext(ctx,
				run.RunID, p.ScannerID, p.Position.X, p.Position.Y, p.Position.Z,
				p.RotationIndex, p.AlignedTo, p.BeaconCount,
			); err != nil {
				return fmt.Errorf("insert placement for scanner %d: %w", p.ScannerID, err)
			}
		}

		beaconStmt, err := tx.PrepareContext(ctx, `INSERT INTO run_beacons (run_id, x, y, z) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare beacon insert: %w", err)
		}
		defer beaconStmt.Close()
		for _, b := range run.Beacons {
			if _, err := beaconStmt.ExecContext(ctx, run.RunID, b.X, b.Y, b.Z); err != nil {
				return fmt.Errorf("insert beacon %s: %w", b, err)
			}
		}

		return tx.Commit()
	})
}

// GetRun returns a run with its placements (by scanner ID) and beacons
// (sorted).
func (s *RunStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, source, reference_id, threshold, beacon_count,
		       max_distance, passes, attempts, created_at
		FROM scanner_runs
		WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if run.Placements, err = s.placements(ctx, runID); err != nil {
		return nil, err
	}
	if run.Beacons, err = s.beacons(ctx, runID); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns run summaries, newest first. limit <= 0 means no limit.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, source, reference_id, threshold, beacon_count,
		       max_distance, passes, attempts, created_at
		FROM scanner_runs
		ORDER BY created_at DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and everything recorded with it.
func (s *RunStore) DeleteRun(ctx context.Context, runID string) error {
	return retryOnBusy(s.clock, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin delete transaction: %w", err)
		}
		defer tx.Rollback()

		for _, q := range []string{
			`DELETE FROM run_beacons WHERE run_id = ?`,
			`DELETE FROM scanner_placements WHERE run_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, runID); err != nil {
				return fmt.Errorf("delete run rows: %w", err)
			}
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM scanner_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return tx.Commit()
	})
}

func (s *RunStore) placements(ctx context.Context, runID string) ([]l4registration.Placement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scanner_id, x, y, z, rotation_index, aligned_to, beacon_count
		FROM scanner_placements
		WHERE run_id = ?
		ORDER BY scanner_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query placements: %w", err)
	}
	defer rows.Close()

	var out []l4registration.Placement
	for rows.Next() {
		var p l4registration.Placement
		if err := rows.Scan(&p.ScannerID, &p.Position.X, &p.Position.Y, &p.Position.Z,
			&p.RotationIndex, &p.AlignedTo, &p.BeaconCount); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		rot, err := l2geometry.RotationAt(p.RotationIndex)
		if err != nil {
			return nil, fmt.Errorf("placement for scanner %d: %w", p.ScannerID, err)
		}
		p.Rotation = rot
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *RunStore) beacons(ctx context.Context, runID string) ([]l2geometry.Beacon, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT x, y, z FROM run_beacons
		WHERE run_id = ?
		ORDER BY x, y, z`, runID)
	if err != nil {
		return nil, fmt.Errorf("query beacons: %w", err)
	}
	defer rows.Close()

	var out []l2geometry.Beacon
	for rows.Next() {
		var b l2geometry.Beacon
		if err := rows.Scan(&b.X, &b.Y, &b.Z); err != nil {
			return nil, fmt.Errorf("scan beacon: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	err := row.Scan(&r.RunID, &r.Source, &r.ReferenceID, &r.Threshold, &r.BeaconCount,
		&r.MaxDistance, &r.Passes, &r.Attempts, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
