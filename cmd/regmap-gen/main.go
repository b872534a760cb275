// regmap-gen turns HTI XML register descriptions into C headers and VHDL
// packages.
//
// THE PIPELINE:
//  1. hti parses the XML documents into the register tree
//  2. The finishing pass lays out bit, word and byte address spaces
//  3. Fact tables are checked against the CUE schema contract
//  4. Identifiers are legalized per output language
//  5. The renderers emit one artifact per document per target
package main

import (
	"fmt"
	"os"

	"github.com/robert-at-pretension-io/regmap-gen/internal/config"
	"github.com/robert-at-pretension-io/regmap-gen/internal/driver"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if os.Args[1] == "init" {
		runInit()
		return
	}

	var (
		configPath string
		sources    []string
	)
	var cfg *config.Config
	override := struct {
		outputDir    string
		targets      []string
		externalRefs bool
		noMaps       bool
		verbose      bool
	}{}

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h", "--help", "help":
			printUsage()
			return
		case "-o", "--output-dir":
			i++
			if i >= len(args) {
				printUsage()
				os.Exit(1)
			}
			override.outputDir = args[i]
		case "-t", "--target":
			i++
			if i >= len(args) {
				printUsage()
				os.Exit(1)
			}
			override.targets = append(override.targets, args[i])
		case "-c", "--config":
			i++
			if i >= len(args) {
				printUsage()
				os.Exit(1)
			}
			configPath = args[i]
		case "-e", "--external-refs":
			override.externalRefs = true
		case "-m", "--no-mmap":
			override.noMaps = true
		case "-v", "--verbose":
			override.verbose = true
		default:
			sources = append(sources, args[i])
		}
	}

	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config %s: %v\n", configPath, err)
			os.Exit(1)
		}
	} else {
		cfg, err = config.Load(".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load config: %v (using defaults)\n", err)
			cfg = config.DefaultConfig()
		}
	}

	if override.outputDir != "" {
		cfg.OutputDir = override.outputDir
	}
	if len(override.targets) > 0 {
		cfg.Targets = override.targets
	}
	if override.externalRefs {
		cfg.ExternalRefs = true
	}
	if override.noMaps {
		off := false
		cfg.MemoryMaps = &off
	}

	if len(sources) == 0 {
		sources, err = cfg.ResolveInputs(".")
		if err != nil || len(sources) == 0 {
			fmt.Fprintln(os.Stderr, "No input files.")
			os.Exit(1)
		}
	}

	d := &driver.Driver{
		Config:  cfg,
		Out:     os.Stdout,
		Log:     os.Stderr,
		Verbose: override.verbose,
	}
	results, err := d.Run(sources)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d artifacts failed\n", failed, len(results))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: regmap-gen [command] [options] <sources...>

Commands:
  init                Create a regmapgen.json configuration file
  <sources>           Register description XML files to generate from

Options:
  -o, --output-dir    Directory to write output files to (default: stdout)
  -t, --target        Output language, repeatable: c, vhdl (default: both)
  -e, --external-refs Memory map headers #include component headers
  -m, --no-mmap       Ignore memory map files; generate only components
  -c, --config        Specify config file
  -v, --verbose       Enable verbose output
  -h, --help          Show this help message

Configuration:
  regmap-gen looks for configuration in:
    1. ./regmapgen.json
    2. ./.regmapgen.json
    3. ~/.config/regmapgen/config.json

  Run 'regmap-gen init' to create a default configuration file.`)
}

func runInit() {
	configPath := "regmapgen.json"

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - Input file patterns")
	fmt.Println("  - Output targets and directory")
	fmt.Println("  - Memory map handling")
}
