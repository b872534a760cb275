package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("<component/>"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestResolveInputs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"ctrlport.xml",
		"maps/soc.xml",
		"maps/deep/dsp.xml",
		"notes.txt",
	)

	cfg := Config{Inputs: []string{"*.xml", "**/*.xml"}}
	files, err := cfg.ResolveInputs(root)
	if err != nil {
		t.Fatalf("ResolveInputs: %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("files: %v", files)
	}
	for _, want := range []string{"ctrlport.xml", "soc.xml", "dsp.xml"} {
		found := false
		for _, f := range files {
			if filepath.Base(f) == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing %s in %v", want, files)
		}
	}
}

func TestResolveInputsExcludes(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "keep.xml", "drop.xml")

	cfg := Config{
		Inputs:  []string{"*.xml"},
		Exclude: []string{"drop.xml"},
	}
	files, err := cfg.ResolveInputs(root)
	if err != nil {
		t.Fatalf("ResolveInputs: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "keep.xml" {
		t.Fatalf("files: %v", files)
	}
}

func TestResolveInputsDedupes(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "one.xml")

	cfg := Config{Inputs: []string{"*.xml", "one.xml", "**/*.xml"}}
	files, err := cfg.ResolveInputs(root)
	if err != nil {
		t.Fatalf("ResolveInputs: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("files: %v", files)
	}
}
