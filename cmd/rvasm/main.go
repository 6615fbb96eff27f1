// Command rvasm assembles RV32IMAC assembly source into a flat binary
// image suitable for flashing onto bare-metal targets.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"rvasm/internal/diag"
	"rvasm/internal/encoding"
	"rvasm/internal/ir"
	"rvasm/internal/parser"
	"rvasm/internal/passes"
	"rvasm/internal/source"
)

const version = "0.3.0"

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type config struct {
	input              string
	output             string
	compress           bool
	includeDirs        dirList
	labelsPath         string
	hexOffset          int64
	includeDefinitions bool
	verbosity          int
}

// dirList collects repeatable -i/--include flags.
type dirList []string

func (d *dirList) String() string { return strings.Join(*d, string(os.PathListSeparator)) }

func (d *dirList) Set(value string) error {
	*d = append(*d, value)
	return nil
}

func run(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("rvasm", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var cfg config
	fs.StringVar(&cfg.output, "o", "bb.out", "output binary path")
	fs.StringVar(&cfg.output, "output", "bb.out", "output binary path")
	fs.BoolVar(&cfg.compress, "c", false, "enable RVC compression")
	fs.BoolVar(&cfg.compress, "compress", false, "enable RVC compression")
	fs.Var(&cfg.includeDirs, "i", "append a directory to the include search path (repeatable)")
	fs.Var(&cfg.includeDirs, "include", "append a directory to the include search path (repeatable)")
	fs.StringVar(&cfg.labelsPath, "l", "", "write a labels-to-addresses listing to this path")
	fs.StringVar(&cfg.labelsPath, "labels", "", "write a labels-to-addresses listing to this path")
	fs.Int64Var(&cfg.hexOffset, "hex-offset", -1, "also emit an Intel HEX file at this load offset")
	fs.BoolVar(&cfg.includeDefinitions, "include-definitions", false, "extend the search path with the bundled chip definitions")
	verbose := fs.Bool("v", false, "print pass progress")
	veryVerbose := fs.Bool("vv", false, "print pass progress and the item listing")
	showVersion := fs.Bool("version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "rvasm %s - a bare-metal RV32IMAC assembler\n\n", version)
		fmt.Fprintf(stderr, "Usage:\n  rvasm [options] <input.asm>\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Fprintf(stderr, "rvasm %s\n", version)
		return nil
	}
	if *veryVerbose {
		cfg.verbosity = 2
	} else if *verbose {
		cfg.verbosity = 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected exactly one input file")
	}
	cfg.input = fs.Arg(0)
	if cfg.hexOffset > 0xffffffff {
		return fmt.Errorf("hex offset must fit in 32 bits: %d", cfg.hexOffset)
	}

	reporter := diag.NewReporter(stderr, cfg.verbosity)
	image, labels, err := assemble(cfg, reporter)
	if err != nil {
		return err
	}

	if err := os.WriteFile(cfg.output, image, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	reporter.Verbosef("wrote %d bytes to %s", len(image), cfg.output)

	if cfg.labelsPath != "" {
		if err := withOutputFile(cfg.labelsPath, func(f *os.File) error {
			return encoding.WriteLabels(f, labels)
		}); err != nil {
			return fmt.Errorf("write labels: %w", err)
		}
	}

	if cfg.hexOffset >= 0 {
		hexPath := cfg.output + ".hex"
		if err := withOutputFile(hexPath, func(f *os.File) error {
			return encoding.WriteIntelHex(f, image, uint32(cfg.hexOffset))
		}); err != nil {
			return fmt.Errorf("write hex: %w", err)
		}
		reporter.Verbosef("wrote Intel HEX image to %s", hexPath)
	}
	return nil
}

// assemble runs the full pipeline and returns the byte image and label
// table. Diagnostics go through the reporter; any recorded error
// suppresses all output files.
func assemble(cfg config, reporter *diag.Reporter) ([]byte, map[string]int64, error) {
	search := append([]string(nil), cfg.includeDirs...)
	if cfg.includeDefinitions {
		dir, err := definitionsRoot()
		if err != nil {
			return nil, nil, err
		}
		search = append(search, dir)
	}

	lines, err := source.Load(cfg.input, source.Config{SearchPath: search}, reporter)
	if err != nil {
		return nil, nil, err
	}
	if reporter.HasErrors() {
		return nil, nil, fmt.Errorf("errors reported while loading source")
	}

	prog := parser.Parse(lines, true, reporter)
	if reporter.HasErrors() {
		return nil, nil, fmt.Errorf("errors reported while parsing")
	}

	mgr := passes.NewManager(reporter)
	mgr.Add(passes.NewResolveConstants(reporter))
	mgr.Add(passes.NewExpandPseudo(reporter, true))
	if err := mgr.Run(prog); err != nil {
		return nil, nil, err
	}

	layout := passes.NewLayout(reporter, cfg.compress)
	plan, err := layout.Resolve(prog)
	if err != nil {
		return nil, nil, err
	}

	if cfg.verbosity >= 2 {
		ir.Dump(prog, os.Stderr)
	}

	image := encoding.EncodeProgram(plan, layout.Longs(), reporter)
	if image == nil || reporter.HasErrors() {
		return nil, nil, fmt.Errorf("assembly failed with %d errors", reporter.Count())
	}
	return image, plan.Labels, nil
}

func withOutputFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = fn(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}
