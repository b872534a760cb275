// regmap-facts dumps the relational fact tables for a set of register
// description XML files as JSON, optionally checking them against the
// schema contract first.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/robert-at-pretension-io/regmap-gen/internal/contract"
	"github.com/robert-at-pretension-io/regmap-gen/internal/facts"
	"github.com/robert-at-pretension-io/regmap-gen/internal/hti"
	"github.com/robert-at-pretension-io/regmap-gen/internal/model"
)

func main() {
	output := flag.String("output", "", "write facts JSON to file (default: stdout)")
	flag.StringVar(output, "o", "", "write facts JSON to file (shorthand)")
	validate := flag.Bool("validate", false, "check the facts against the schema contract")
	flag.Parse()

	sources := flag.Args()
	if len(sources) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: regmap-facts [--output file] [--validate] <sources...>")
		os.Exit(1)
	}

	var components []*model.Component
	var maps []*model.MemoryMap
	byName := map[string]*model.Component{}
	for _, source := range sources {
		doc, err := hti.LoadFile(source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", source, err)
			os.Exit(1)
		}
		switch {
		case doc.Component != nil:
			if err := doc.Component.Finish(); err != nil {
				fmt.Fprintf(os.Stderr, "Error finishing %s: %v\n", source, err)
				os.Exit(1)
			}
			components = append(components, doc.Component)
			byName[doc.Component.Name] = doc.Component
		case doc.Map != nil:
			maps = append(maps, doc.Map)
		}
	}
	for _, m := range maps {
		if err := m.Finish(byName); err != nil {
			fmt.Fprintf(os.Stderr, "Error finishing %s: %v\n", m.Src.File, err)
			os.Exit(1)
		}
	}

	tables, err := facts.FromTree(components, maps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *validate {
		v, err := contract.New()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if errs := v.ValidationErrors(tables); errs != nil {
			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "contract: %s\n", e)
			}
			os.Exit(1)
		}
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", *output, err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tables); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding facts: %v\n", err)
		os.Exit(1)
	}
}
