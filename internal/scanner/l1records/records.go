// Package l1records owns Layer 1 (Records) of the scanner data model.
//
// Responsibilities: reading the scanner report text format and rejecting
// malformed input before it reaches the geometry layers.
// Key types: Record, ParseError.
package l1records

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/beacon.report/internal/scanner/l2geometry"
)

// MaxInputSize caps ParseFile input (16MB).
const MaxInputSize = 16 * 1024 * 1024

var (
	// ErrEmptyInput is returned when the input holds no scanner records.
	ErrEmptyInput = errors.New("no scanner records in input")
	// ErrMalformedHeader is returned when a record does not start with
	// "--- scanner N ---" for a non-negative N.
	ErrMalformedHeader = errors.New("malformed scanner header")
	// ErrMalformedBeacon is returned when a beacon line is not three comma-separated integers.
	ErrMalformedBeacon = errors.New("malformed beacon line")
)

// Record is one scanner's report: its ID and the beacons it saw, in its own
// local frame and in input order.
type Record struct {
	ID      int
	Beacons []l2geometry.Beacon
}

// ParseError locates a parse failure in the input.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads blank-line separated scanner records from r.
func Parse(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		records []Record
		current *Record
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if current != nil {
				records = append(records, *current)
				current = nil
			}
			continue
		}

		if current == nil {
			id, err := parseHeader(line)
			if err != nil {
				return nil, &ParseError{Line: lineNo, Text: line, Err: err}
			}
			current = &Record{ID: id}
			continue
		}

		b, err := ParseBeacon(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: line, Err: err}
		}
		current.Beacons = append(current.Beacons, b)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scanner records: %w", err)
	}
	if current != nil {
		records = append(records, *current)
	}
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}
	return records, nil
}

// ParseFile validates path and parses the file it names.
func ParseFile(path string) ([]Record, error) {
	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input path %q is a directory", cleanPath)
	}
	if info.Size() > MaxInputSize {
		return nil, fmt.Errorf("input file too large: %d bytes (max %d)", info.Size(), MaxInputSize)
	}

	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// ParseBeacon parses one "x,y,z" line.
func ParseBeacon(line string) (l2geometry.Beacon, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return l2geometry.Beacon{}, fmt.Errorf("%w: want 3 fields, got %d", ErrMalformedBeacon, len(parts))
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return l2geometry.Beacon{}, fmt.Errorf("%w: %v", ErrMalformedBeacon, err)
		}
		v[i] = n
	}
	return l2geometry.Beacon{X: v[0], Y: v[1], Z: v[2]}, nil
}

// parseHeader accepts "--- scanner N ---" with any run of spaces between tokens.
func parseHeader(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 || fields[0] != "---" || fields[1] != "scanner" || fields[3] != "---" {
		return 0, ErrMalformedHeader
	}
	id, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, fmt.Errorf("%w: scanner id: %v", ErrMalformedHeader, err)
	}
	if id < 0 {
		return 0, fmt.Errorf("%w: scanner id %d is negative", ErrMalformedHeader, id)
	}
	return id, nil
}
