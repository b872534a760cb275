// Package driver runs the whole pipeline over a batch of source files:
// load, finish, contract check, then one artifact per document per target.
// A failed artifact is reported and the rest of the batch keeps going.
package driver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/regmap-gen/internal/cheader"
	"github.com/robert-at-pretension-io/regmap-gen/internal/config"
	"github.com/robert-at-pretension-io/regmap-gen/internal/contract"
	"github.com/robert-at-pretension-io/regmap-gen/internal/facts"
	"github.com/robert-at-pretension-io/regmap-gen/internal/hti"
	"github.com/robert-at-pretension-io/regmap-gen/internal/model"
	"github.com/robert-at-pretension-io/regmap-gen/internal/vhdl"
)

// Result is the outcome of one generated artifact.
type Result struct {
	Source string
	Target string
	Path   string
	Err    error
}

// Driver generates artifacts for a batch of register description files.
type Driver struct {
	Config  *config.Config
	Out     io.Writer // artifact sink when no output directory is set
	Log     io.Writer // diagnostics
	Verbose bool
	Now     func() time.Time
}

func (d *Driver) logf(format string, args ...any) {
	if d.Log != nil {
		fmt.Fprintf(d.Log, format, args...)
	}
}

func (d *Driver) verbosef(format string, args ...any) {
	if d.Verbose {
		d.logf(format, args...)
	}
}

type document struct {
	source string
	comp   *model.Component
	m      *model.MemoryMap
}

// Run loads every file, validates the batch against the schema contract and
// generates all requested artifacts. Per-artifact failures land in the
// returned results; only batch-level problems (contract violations, an
// unusable output directory) return an error.
func (d *Driver) Run(files []string) ([]Result, error) {
	if err := d.Config.ValidateTargets(); err != nil {
		return nil, err
	}
	if dir := d.Config.OutputDir; dir != "" {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("unable to write to directory %s", dir)
		}
	}

	var results []Result
	var docs []document
	byName := map[string]*model.Component{}

	for _, file := range files {
		d.verbosef("loading %s\n", file)
		doc, err := hti.LoadFile(file)
		if err == nil && doc.Component != nil {
			if err = doc.Component.Finish(); err == nil {
				if prev, dup := byName[doc.Component.Name]; dup {
					err = fmt.Errorf("component %s already defined in %s", doc.Component.Name, prev.Src.File)
				} else {
					byName[doc.Component.Name] = doc.Component
				}
			}
		}
		if err != nil {
			d.logf("error loading %s: %v\n", file, err)
			results = append(results, Result{Source: file, Err: err})
			continue
		}
		docs = append(docs, document{source: file, comp: doc.Component, m: doc.Map})
	}

	var comps []*model.Component
	var maps []*model.MemoryMap
	for i := range docs {
		if docs[i].comp != nil {
			comps = append(comps, docs[i].comp)
		}
	}

	// Maps finish once the whole component set is known.
	for i := 0; i < len(docs); i++ {
		doc := &docs[i]
		if doc.m == nil {
			continue
		}
		if err := doc.m.Finish(byName); err != nil {
			d.logf("error finishing %s: %v\n", doc.source, err)
			results = append(results, Result{Source: doc.source, Err: err})
			docs = append(docs[:i], docs[i+1:]...)
			i--
			continue
		}
		maps = append(maps, doc.m)
	}

	if err := d.checkContract(comps, maps); err != nil {
		return results, err
	}

	haveMaps := len(maps) > 0 && d.Config.GenerateMaps()
	for _, target := range d.Config.Targets {
		// C component headers are inlined into the map header unless the
		// maps are off or reference their components externally.
		standaloneComponents := target != "c" || !haveMaps || d.Config.ExternalRefs
		results = append(results, d.generateTarget(target, docs, standaloneComponents)...)
	}
	return results, nil
}

func (d *Driver) checkContract(comps []*model.Component, maps []*model.MemoryMap) error {
	tables, err := facts.FromTree(comps, maps)
	if err != nil {
		return err
	}
	v, err := contract.New()
	if err != nil {
		return err
	}
	if errs := v.ValidationErrors(tables); errs != nil {
		for _, e := range errs {
			d.logf("contract: %s\n", e)
		}
		return fmt.Errorf("facts violate the schema contract (%d errors)", len(errs))
	}
	return nil
}

// generateTarget renders every document for one target. Components run in
// parallel; maps run after them, serially, because map generation touches
// the bound components.
func (d *Driver) generateTarget(target string, docs []document, standaloneComponents bool) []Result {
	results := make([]Result, 0, len(docs))
	var mu sync.Mutex

	jobs := d.Config.MaxParallelJobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if d.Config.OutputDir == "" {
		// Artifacts share one stream, so they must not interleave.
		jobs = 1
	}
	var g errgroup.Group
	g.SetLimit(jobs)

	for _, doc := range docs {
		if doc.comp == nil || (target == "c" && !standaloneComponents) {
			continue
		}
		g.Go(func() error {
			res := d.generate(target, doc.source, doc.comp, nil)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if d.Config.GenerateMaps() {
		for _, doc := range docs {
			if doc.m == nil {
				continue
			}
			results = append(results, d.generate(target, doc.source, nil, doc.m))
		}
	}
	return results
}

func (d *Driver) generate(target, source string, comp *model.Component, m *model.MemoryMap) Result {
	res := Result{Source: source, Target: target}

	var text string
	var err error
	switch target {
	case "c":
		gen := &cheader.Generator{Now: d.Now}
		if comp != nil {
			text, _, err = gen.Component(comp, true)
		} else {
			text, _, err = gen.MemoryMap(m, d.Config.ExternalRefs)
		}
		res.Path = cheader.OutputName(source)
	case "vhdl":
		gen := &vhdl.Generator{Now: d.Now}
		if comp != nil {
			text, _, err = gen.Component(comp)
		} else {
			text, _, err = gen.MemoryMap(m)
		}
		res.Path = vhdl.OutputName(source)
	}

	if err != nil {
		res.Path = ""
		res.Err = err
		d.logf("error generating %s from %s: %v\n", target, source, err)
		return res
	}

	if err := d.emit(res.Path, text); err != nil {
		res.Path = ""
		res.Err = err
		d.logf("error writing %s output for %s: %v\n", target, source, err)
		return res
	}
	d.verbosef("generated %s\n", res.Path)
	return res
}

// emit writes one finished artifact. Nothing is written for an artifact
// whose generation failed, so a bad document never leaves a truncated file.
func (d *Driver) emit(name, text string) error {
	if d.Config.OutputDir == "" {
		if d.Out != nil {
			_, err := io.WriteString(d.Out, text)
			return err
		}
		return nil
	}
	return os.WriteFile(filepath.Join(d.Config.OutputDir, name), []byte(text), 0644)
}
