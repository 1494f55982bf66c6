package monitoring

import (
	"fmt"
	"io"
	"log"
)

// Logf is the package-level diagnostic logger for commands and storage code.
// It defaults to log.Printf but may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Streams holds the writers for the three layer log streams. A nil writer
// disables its stream.
type Streams struct {
	Ops, Diag, Trace io.Writer
}

// StreamsForLevel routes the streams enabled at level to w: "ops" enables
// ops only, "diag" adds diag, "trace" enables all three.
func StreamsForLevel(level string, w io.Writer) (Streams, error) {
	switch level {
	case "ops", "":
		return Streams{Ops: w}, nil
	case "diag":
		return Streams{Ops: w, Diag: w}, nil
	case "trace":
		return Streams{Ops: w, Diag: w, Trace: w}, nil
	}
	return Streams{}, fmt.Errorf("unknown log level %q", level)
}
