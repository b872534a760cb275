package driver

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/robert-at-pretension-io/regmap-gen/internal/config"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newDriver(cfg *config.Config) (*Driver, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	log := &bytes.Buffer{}
	return &Driver{Config: cfg, Out: out, Log: log, Now: fixedNow}, out, log
}

func fixture(name string) string {
	return filepath.Join("testdata", name)
}

func resultFor(results []Result, source, target string) (Result, bool) {
	for _, r := range results {
		if strings.HasSuffix(r.Source, source) && r.Target == target {
			return r, true
		}
	}
	return Result{}, false
}

func TestRunGeneratesBothTargets(t *testing.T) {
	outDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.OutputDir = outDir
	d, _, _ := newDriver(cfg)

	results, err := d.Run([]string{fixture("ctrlport.xml"), fixture("soc.xml")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("artifact %s/%s failed: %v", r.Source, r.Target, r.Err)
		}
	}

	// Map headers inline their components by default, so the C target
	// emits no standalone component header.
	if _, err := os.Stat(filepath.Join(outDir, "ctrlport.h")); !os.IsNotExist(err) {
		t.Error("ctrlport.h should not exist when maps inline their components")
	}

	socH, err := os.ReadFile(filepath.Join(outDir, "soc.h"))
	if err != nil {
		t.Fatalf("soc.h: %v", err)
	}
	for _, want := range []string{"typedef struct {", "} t_CTRLPORT;", "#ifndef SOC_H", "SOC_BASE"} {
		if !strings.Contains(string(socH), want) {
			t.Errorf("soc.h missing %q", want)
		}
	}

	ctrlVHD, err := os.ReadFile(filepath.Join(outDir, "ctrlport.vhd"))
	if err != nil {
		t.Fatalf("ctrlport.vhd: %v", err)
	}
	if !strings.Contains(string(ctrlVHD), "package pkg_CTRLPORT is") {
		t.Error("ctrlport.vhd missing package declaration")
	}

	socVHD, err := os.ReadFile(filepath.Join(outDir, "soc.vhd"))
	if err != nil {
		t.Fatalf("soc.vhd: %v", err)
	}
	if !strings.Contains(string(socVHD), "constant SOC_BASE") {
		t.Error("soc.vhd missing base constant")
	}
}

func TestRunExternalRefs(t *testing.T) {
	outDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.OutputDir = outDir
	cfg.Targets = []string{"c"}
	cfg.ExternalRefs = true
	d, _, _ := newDriver(cfg)

	results, err := d.Run([]string{fixture("ctrlport.xml"), fixture("soc.xml")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r, ok := resultFor(results, "ctrlport.xml", "c"); !ok || r.Err != nil || r.Path != "ctrlport.h" {
		t.Errorf("component result %+v ok=%v", r, ok)
	}

	if _, err := os.Stat(filepath.Join(outDir, "ctrlport.h")); err != nil {
		t.Error("ctrlport.h should exist with external refs")
	}
	socH, err := os.ReadFile(filepath.Join(outDir, "soc.h"))
	if err != nil {
		t.Fatalf("soc.h: %v", err)
	}
	if !strings.Contains(string(socH), `#include "ctrlport.h"`) {
		t.Error("soc.h should include the component header")
	}
	if strings.Contains(string(socH), "typedef struct {") {
		t.Error("soc.h should not inline the component")
	}
}

func TestRunBadInputDoesNotAbortSiblings(t *testing.T) {
	outDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.OutputDir = outDir
	cfg.Targets = []string{"vhdl"}
	d, _, log := newDriver(cfg)

	results, err := d.Run([]string{fixture("broken.xml"), fixture("ctrlport.xml")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	broken, ok := resultFor(results, "broken.xml", "")
	if !ok || broken.Err == nil {
		t.Errorf("broken.xml should carry a load error, got %+v", broken)
	}
	if !strings.Contains(log.String(), "broken.xml") {
		t.Errorf("log does not mention the failing file: %q", log.String())
	}

	if _, err := os.Stat(filepath.Join(outDir, "ctrlport.vhd")); err != nil {
		t.Error("sibling artifact missing after one bad input")
	}
	if _, err := os.Stat(filepath.Join(outDir, "broken.vhd")); !os.IsNotExist(err) {
		t.Error("no artifact may be written for a failed document")
	}
}

func TestRunStdout(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Targets = []string{"vhdl"}
	d, out, _ := newDriver(cfg)

	if _, err := d.Run([]string{fixture("ctrlport.xml")}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "package pkg_CTRLPORT is") {
		t.Error("stdout mode should carry the artifact text")
	}
}

func TestRunContractViolationAborts(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Targets = []string{"vhdl"}
	d, _, log := newDriver(cfg)

	// A 24-bit bus finishes cleanly but is outside the schema contract.
	_, err := d.Run([]string{fixture("wide24.xml")})
	if err == nil {
		t.Fatal("expected a contract failure")
	}
	if !strings.Contains(err.Error(), "contract") {
		t.Errorf("error %q should mention the contract", err)
	}
	if !strings.Contains(log.String(), "width") {
		t.Errorf("log should carry the individual violations: %q", log.String())
	}
}

func TestRunRejectsUnknownTarget(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Targets = []string{"verilog"}
	d, _, _ := newDriver(cfg)
	if _, err := d.Run([]string{fixture("ctrlport.xml")}); err == nil {
		t.Fatal("expected target validation to fail")
	}
}

func TestRunSkipsMapsWhenDisabled(t *testing.T) {
	outDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.OutputDir = outDir
	cfg.MemoryMaps = new(bool) // false
	d, _, _ := newDriver(cfg)

	if _, err := d.Run([]string{fixture("ctrlport.xml"), fixture("soc.xml")}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "soc.h")); !os.IsNotExist(err) {
		t.Error("soc.h should not exist with maps disabled")
	}
	// Component headers come back as standalone files instead.
	if _, err := os.Stat(filepath.Join(outDir, "ctrlport.h")); err != nil {
		t.Error("ctrlport.h should exist with maps disabled")
	}
}
