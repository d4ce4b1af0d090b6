package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverridesAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
addr: ":9000"
max_trigger_depth: 0
trigger_cooldown_ms: 250
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("addr not applied: %q", cfg.Addr)
	}
	// Explicit zero is meaningful: only root triggers run.
	if cfg.MaxTriggerDepth != 0 {
		t.Fatalf("explicit zero depth overridden: %d", cfg.MaxTriggerDepth)
	}
	if cfg.TriggerCooldown() != 250*time.Millisecond {
		t.Fatalf("cooldown wrong: %v", cfg.TriggerCooldown())
	}
	// Absent keys keep defaults.
	if cfg.MaxConcurrency != Default().MaxConcurrency || cfg.TriggerBuffer != Default().TriggerBuffer {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("addr: [broken"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadUnits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.yaml")
	data := `
units:
  - id: fn-parse
    node_type: function
    file_path: src/parse.py
    start_line: 1
    end_line: 40
  - id: cls-lexer
    node_type: class
    file_path: src/lexer.py
    parent_id: fn-parse
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	units, err := LoadUnits(path)
	if err != nil {
		t.Fatalf("load units: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	if units[0].ID != "fn-parse" || units[0].NodeType != "function" || units[0].EndLine != 40 {
		t.Fatalf("unit 0 wrong: %+v", units[0])
	}
	if units[1].ParentID != "fn-parse" {
		t.Fatalf("unit 1 wrong: %+v", units[1])
	}
}

func TestLoadUnitsRequiresIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.yaml")
	if err := os.WriteFile(path, []byte("units:\n  - file_path: a.py\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadUnits(path); err == nil {
		t.Fatal("expected error for unit without id")
	}
}

func TestLoadUnitsMissingFile(t *testing.T) {
	units, err := LoadUnits(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil || units != nil {
		t.Fatalf("expected no units and no error, got %v, %v", units, err)
	}
}
