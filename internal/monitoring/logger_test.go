package monitoring

import (
	"bytes"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op; this must not panic
	SetLogger(nil)
	Logf("test message %d", 1)
}

func TestStreamsForLevel(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		level                        string
		wantOps, wantDiag, wantTrace bool
	}{
		{level: "", wantOps: true},
		{level: "ops", wantOps: true},
		{level: "diag", wantOps: true, wantDiag: true},
		{level: "trace", wantOps: true, wantDiag: true, wantTrace: true},
	}
	for _, tt := range tests {
		s, err := StreamsForLevel(tt.level, &buf)
		if err != nil {
			t.Fatalf("level %q: %v", tt.level, err)
		}
		if (s.Ops != nil) != tt.wantOps || (s.Diag != nil) != tt.wantDiag || (s.Trace != nil) != tt.wantTrace {
			t.Errorf("level %q: streams = %+v", tt.level, s)
		}
	}

	if _, err := StreamsForLevel("verbose", &buf); err == nil {
		t.Error("expected error for unknown level")
	}
}
