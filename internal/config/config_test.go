package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regmapgen.json")
	if err := os.WriteFile(path, []byte(`{"outputDir": "gen"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.OutputDir != "gen" {
		t.Errorf("outputDir %q", cfg.OutputDir)
	}
	if len(cfg.Targets) != 2 {
		t.Errorf("default targets not applied: %v", cfg.Targets)
	}
	if !cfg.GenerateMaps() {
		t.Error("memory maps should default to on")
	}
}

func TestLoadFindsConfigInRoot(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "regmapgen.json")
	if err := os.WriteFile(path, []byte(`{"targets": ["vhdl"], "memoryMaps": false}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0] != "vhdl" {
		t.Errorf("targets %v", cfg.Targets)
	}
	if cfg.GenerateMaps() {
		t.Error("memoryMaps false should stick")
	}
}

func TestLoadWithoutConfigReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Targets) != 2 || cfg.MaxParallelJobs != 0 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestValidateTargets(t *testing.T) {
	cfg := &Config{Targets: []string{"c", "vhdl"}}
	if err := cfg.ValidateTargets(); err != nil {
		t.Fatalf("ValidateTargets: %v", err)
	}
	cfg.Targets = append(cfg.Targets, "verilog")
	if err := cfg.ValidateTargets(); err == nil {
		t.Fatal("expected rejection of unknown target")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regmapgen.json")
	cfg := DefaultConfig()
	cfg.OutputDir = "out"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.OutputDir != "out" || len(loaded.Targets) != 2 {
		t.Errorf("round trip %+v", loaded)
	}
}
