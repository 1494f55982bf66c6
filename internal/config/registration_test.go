package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultRegistrationConfig(t *testing.T) {
	cfg := DefaultRegistrationConfig()

	if cfg.OverlapThreshold == nil || *cfg.OverlapThreshold != 12 {
		t.Errorf("Expected OverlapThreshold 12, got %v", cfg.OverlapThreshold)
	}
	if cfg.GetWorkers() != 1 {
		t.Errorf("GetWorkers() = %d, want 1", cfg.GetWorkers())
	}
	if cfg.GetLogLevel() != LogLevelOps {
		t.Errorf("GetLogLevel() = %q, want %q", cfg.GetLogLevel(), LogLevelOps)
	}
	if _, ok := cfg.GetReferenceScanner(); ok {
		t.Error("reference scanner should be unset by default")
	}
	if cfg.GetDatabase() != "" {
		t.Errorf("GetDatabase() = %q, want empty", cfg.GetDatabase())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEmptyRegistrationConfig_Getters(t *testing.T) {
	cfg := EmptyRegistrationConfig()
	if cfg.GetOverlapThreshold() != DefaultOverlapThreshold {
		t.Errorf("GetOverlapThreshold() = %d", cfg.GetOverlapThreshold())
	}
	if cfg.GetWorkers() != DefaultWorkers {
		t.Errorf("GetWorkers() = %d", cfg.GetWorkers())
	}
	empty := ""
	cfg.LogLevel = &empty
	if cfg.GetLogLevel() != DefaultLogLevel {
		t.Errorf("GetLogLevel() = %q", cfg.GetLogLevel())
	}
}

func TestLoadRegistrationConfig_JSON(t *testing.T) {
	path := writeFile(t, "cfg.json", `{
  "overlap_threshold": 3,
  "reference_scanner": 4,
  "workers": 8
}`)

	cfg, err := LoadRegistrationConfig(path)
	if err != nil {
		t.Fatalf("LoadRegistrationConfig: %v", err)
	}
	if cfg.GetOverlapThreshold() != 3 {
		t.Errorf("GetOverlapThreshold() = %d, want 3", cfg.GetOverlapThreshold())
	}
	if ref, ok := cfg.GetReferenceScanner(); !ok || ref != 4 {
		t.Errorf("GetReferenceScanner() = %d, %t", ref, ok)
	}
	if cfg.GetWorkers() != 8 {
		t.Errorf("GetWorkers() = %d, want 8", cfg.GetWorkers())
	}
	// Omitted fields fall back to defaults.
	if cfg.GetLogLevel() != DefaultLogLevel {
		t.Errorf("GetLogLevel() = %q", cfg.GetLogLevel())
	}
}

func TestLoadRegistrationConfig_YAML(t *testing.T) {
	for _, name := range []string{"cfg.yaml", "cfg.yml"} {
		path := writeFile(t, name, "overlap_threshold: 6\nlog_level: diag\ndatabase: runs.db\n")
		cfg, err := LoadRegistrationConfig(path)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if cfg.GetOverlapThreshold() != 6 || cfg.GetLogLevel() != LogLevelDiag || cfg.GetDatabase() != "runs.db" {
			t.Errorf("%s: unexpected config %+v", name, cfg)
		}
	}
}

func TestLoadRegistrationConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{name: "bad extension", file: "cfg.toml", body: "", wantErr: "extension"},
		{name: "bad json", file: "cfg.json", body: "{", wantErr: "parse config JSON"},
		{name: "bad yaml", file: "cfg.yaml", body: "workers: [1", wantErr: "parse config YAML"},
		{name: "zero threshold", file: "cfg.json", body: `{"overlap_threshold": 0}`, wantErr: "overlap_threshold"},
		{name: "zero workers", file: "cfg.yaml", body: "workers: 0", wantErr: "workers"},
		{name: "bad log level", file: "cfg.json", body: `{"log_level": "loud"}`, wantErr: "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.body)
			_, err := LoadRegistrationConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadRegistrationConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadRegistrationConfig_TooLarge(t *testing.T) {
	body := `{"workers": 2` + strings.Repeat(" ", maxFileSize) + `}`
	path := writeFile(t, "big.json", body)
	if _, err := LoadRegistrationConfig(path); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("err = %v, want too large", err)
	}
}

func TestMerge(t *testing.T) {
	cfg := DefaultRegistrationConfig()
	cfg.Merge(nil)
	cfg.Merge(&RegistrationConfig{
		OverlapThreshold: Int(2),
		ReferenceScanner: Int(1),
		Database:         String("x.db"),
	})

	if cfg.GetOverlapThreshold() != 2 {
		t.Errorf("threshold = %d", cfg.GetOverlapThreshold())
	}
	if ref, ok := cfg.GetReferenceScanner(); !ok || ref != 1 {
		t.Errorf("reference = %d, %t", ref, ok)
	}
	if cfg.GetWorkers() != DefaultWorkers {
		t.Errorf("workers should be untouched, got %d", cfg.GetWorkers())
	}
	if cfg.GetDatabase() != "x.db" {
		t.Errorf("database = %q", cfg.GetDatabase())
	}

	// Merge copies values rather than aliasing the override's pointers.
	o := &RegistrationConfig{Workers: Int(3)}
	cfg.Merge(o)
	*o.Workers = 99
	if cfg.GetWorkers() != 3 {
		t.Errorf("workers = %d, want 3", cfg.GetWorkers())
	}
}
