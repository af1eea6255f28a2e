package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"

	"github.com/IamGodseye/1brc/internal/pipeline"
	"github.com/IamGodseye/1brc/pkg/stationstats"
)

var (
	configPath     = flag.String("config", "", "Path to a YAML config file (flags override it)")
	inputPath      = flag.String("in", "", "Path to the measurements file")
	outputPath     = flag.String("out", "results.txt", "Path to the results file")
	chunkSize      = flag.String("chunk-size", "1MiB", "Nominal chunk size (e.g. 1MiB, 64kB)")
	partitions     = flag.Int("partitions", runtime.NumCPU(), "Number of buckets")
	parallelism    = flag.Int("parallelism", runtime.NumCPU(), "Worker pool size for both phases")
	mode           = flag.String("mode", string(stationstats.ModeAuto), "Bucket storage: auto, memory or spill")
	spillBackend   = flag.String("spill-backend", string(stationstats.BackendFile), "Spill storage: file or bbolt")
	spillThreshold = flag.String("spill-threshold", "512MiB", "Input size above which auto mode spills")
	tempDir        = flag.String("tmp", "", "Parent directory for scratch storage (default system temp dir)")
	progress       = flag.Bool("progress", false, "Show a progress bar per phase instead of log lines")
)

const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: brc -in <measurements> [-out <results>] [flags]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	// Positional form: brc <input> [output]
	if flag.NArg() > 0 && !isSet("in") {
		*inputPath = flag.Arg(0)
		setFlags["in"] = true
	}
	if flag.NArg() > 1 && !isSet("out") {
		*outputPath = flag.Arg(1)
		setFlags["out"] = true
	}

	cfg, err := buildConfig()
	if err != nil {
		log.Printf("Configuration error: %v", err)
		os.Exit(exitUsage)
	}

	opts := []pipeline.Option{}
	var bars *phaseBars
	if *progress {
		bars = newPhaseBars(os.Stderr)
		opts = append(opts, pipeline.WithLogger(log.New(io.Discard, "", 0)), pipeline.WithHooks(bars.Hooks()))
	}

	p, err := pipeline.New(cfg, opts...)
	if err != nil {
		log.Printf("Configuration error: %v", err)
		os.Exit(exitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	res, err := p.Run(ctx)
	stop()
	if bars != nil {
		bars.Finish()
	}
	if err != nil {
		log.Printf("Run failed: %v", err)
		os.Exit(exitFailure)
	}

	printResult(os.Stdout, cfg, res)
}

// setFlags records the flags given on the command line; only those
// override values from -config.
var setFlags = map[string]bool{}

func isSet(name string) bool {
	return setFlags[name]
}

func buildConfig() (stationstats.Config, error) {
	cfg := stationstats.DefaultConfig()
	if *configPath != "" {
		loaded, err := stationstats.LoadConfig(*configPath)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}

	if isSet("in") || cfg.InputPath == "" {
		cfg.InputPath = *inputPath
	}
	if isSet("out") || cfg.OutputPath == "" {
		cfg.OutputPath = *outputPath
	}
	if isSet("chunk-size") {
		n, err := stationstats.ParseSize(*chunkSize)
		if err != nil {
			return cfg, fmt.Errorf("-chunk-size: %w", err)
		}
		cfg.ChunkSize = n
	}
	if isSet("partitions") {
		cfg.Partitions = *partitions
	}
	if isSet("parallelism") {
		cfg.Parallelism = *parallelism
	}
	if isSet("mode") {
		cfg.Mode = stationstats.SpillMode(*mode)
	}
	if isSet("spill-backend") {
		cfg.SpillBackend = stationstats.SpillBackend(*spillBackend)
	}
	if isSet("spill-threshold") {
		n, err := stationstats.ParseSize(*spillThreshold)
		if err != nil {
			return cfg, fmt.Errorf("-spill-threshold: %w", err)
		}
		cfg.SpillThreshold = n
	}
	if isSet("tmp") {
		cfg.TempDir = *tempDir
	}

	if cfg.InputPath != "" {
		abs, err := filepath.Abs(cfg.InputPath)
		if err != nil {
			return cfg, err
		}
		cfg.InputPath = abs
	}

	return cfg, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
