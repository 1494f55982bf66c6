package sqlite

import (
	"errors"
	"testing"
	"time"

	"github.com/banshee-data/beacon.report/internal/timeutil"
)

func TestIsSQLiteBusy(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "database is locked", err: errors.New("database is locked (5) (SQLITE_BUSY)"), expected: true},
		{name: "SQLITE_BUSY", err: errors.New("SQLITE_BUSY"), expected: true},
		{name: "other error", err: errors.New("some other error"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSQLiteBusy(tt.err); got != tt.expected {
				t.Errorf("isSQLiteBusy(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRetryOnBusy(t *testing.T) {
	t.Run("success after retry", func(t *testing.T) {
		clock := timeutil.NewMockClock(time.Unix(0, 0))
		callCount := 0
		err := retryOnBusy(clock, func() error {
			callCount++
			if callCount < 3 {
				return errors.New("database is locked (5) (SQLITE_BUSY)")
			}
			return nil
		})
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if callCount != 3 {
			t.Errorf("expected 3 calls, got %d", callCount)
		}
		sleeps := clock.Sleeps()
		if len(sleeps) != 2 || sleeps[0] != busyInitialDelay || sleeps[1] != 2*busyInitialDelay {
			t.Errorf("sleeps = %v, want [%v %v]", sleeps, busyInitialDelay, 2*busyInitialDelay)
		}
	})

	t.Run("non-busy error fails immediately", func(t *testing.T) {
		callCount := 0
		clock := timeutil.NewMockClock(time.Unix(0, 0))
		testErr := errors.New("some other error")
		err := retryOnBusy(clock, func() error {
			callCount++
			return testErr
		})
		if err != testErr {
			t.Errorf("expected error %v, got %v", testErr, err)
		}
		if callCount != 1 {
			t.Errorf("expected 1 call, got %d", callCount)
		}
		if n := len(clock.Sleeps()); n != 0 {
			t.Errorf("expected no backoff, got %d sleeps", n)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		clock := timeutil.NewMockClock(time.Unix(0, 0))
		callCount := 0
		err := retryOnBusy(clock, func() error {
			callCount++
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		})
		if err == nil {
			t.Error("expected error, got nil")
		}
		if callCount != maxBusyRetries {
			t.Errorf("expected %d calls, got %d", maxBusyRetries, callCount)
		}
		if n := len(clock.Sleeps()); n != maxBusyRetries-1 {
			t.Errorf("expected %d sleeps, got %d", maxBusyRetries-1, n)
		}
	})
}

func TestDSN(t *testing.T) {
	got := dsn("runs.db")
	want := "runs.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	if got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
}
