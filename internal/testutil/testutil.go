// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CanonicalInput is the five-scanner reference example: 25 or 26 beacons per
// scanner, 79 distinct beacons once every scanner is registered.
//
//go:embed testdata/canonical.txt
var CanonicalInput string

// Expected values for CanonicalInput.
const (
	CanonicalBeaconCount = 79
	CanonicalMaxDistance = 3621
)

// CanonicalPositions maps scanner ID to its resolved position relative to
// scanner 0.
var CanonicalPositions = map[int][3]int{
	0: {0, 0, 0},
	1: {68, -1246, -43},
	2: {1105, -1205, 1229},
	3: {-92, -2380, -20},
	4: {-20, -1133, 1061},
}

// CanonicalReader returns a fresh reader over CanonicalInput.
func CanonicalReader() *strings.Reader {
	return strings.NewReader(CanonicalInput)
}

// WriteCanonicalFile writes CanonicalInput into a temp dir and returns its path.
func WriteCanonicalFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scanners.txt")
	if err := os.WriteFile(path, []byte(CanonicalInput), 0o644); err != nil {
		t.Fatalf("write canonical input: %v", err)
	}
	return path
}

// TempDBPath returns a path for a throwaway SQLite database.
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "beacons.db")
}
