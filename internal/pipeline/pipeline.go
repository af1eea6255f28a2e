package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/IamGodseye/1brc/internal/worker"
	"github.com/IamGodseye/1brc/pkg/executor"
	"github.com/IamGodseye/1brc/pkg/stationstats"
	"github.com/IamGodseye/1brc/pkg/storage"
)

// Phase names a parallel stage of the pipeline.
type Phase string

const (
	PhaseMap    Phase = "map"
	PhaseReduce Phase = "reduce"
)

// Hooks lets callers observe progress. Callbacks may be invoked from
// several goroutines at once.
type Hooks struct {
	PhaseStarted func(phase Phase, tasks int)
	TaskDone     func(phase Phase)
}

// PhaseTiming is the wall time spent in one step of a run.
type PhaseTiming struct {
	Name     string
	Duration time.Duration
}

// Result describes a successful run.
type Result struct {
	RunID        string
	OutputPath   string
	InputSize    int64
	Chunks       int
	Partitions   int
	Spilled      bool
	SpillBackend stationstats.SpillBackend
	Stations     int
	Records      int64
	Dropped      int64 // Malformed lines
	Timings      []PhaseTiming
	Total        time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for phase progress (default log.Default()).
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithHooks installs progress callbacks.
func WithHooks(hooks Hooks) Option {
	return func(p *Pipeline) {
		p.hooks = hooks
	}
}

// Pipeline runs one aggregation job. Each Run owns its worker pools and
// scratch storage and releases both before returning.
type Pipeline struct {
	cfg    stationstats.Config
	logger *log.Logger
	hooks  Hooks
}

// New validates cfg and returns a pipeline ready to run. Nothing is
// created or opened here.
func New(cfg stationstats.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if info, err := os.Stat(cfg.OutputPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: output path %s is a directory", stationstats.ErrInvalidConfig, cfg.OutputPath)
	}

	p := &Pipeline{
		cfg:    cfg,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Run executes chunking, the map phase, the reduce phase and the merge,
// then publishes the output file. On error no output is published and all
// scratch storage has been removed.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	start := time.Now()
	res := &Result{
		RunID:      runID,
		OutputPath: p.cfg.OutputPath,
		Partitions: p.cfg.Partitions,
	}
	step := func(name string, since time.Time) {
		d := time.Since(since)
		res.Timings = append(res.Timings, PhaseTiming{Name: name, Duration: d})
		p.logger.Printf("[PIPELINE:%s] %s took %s", runID, name, d)
	}

	// Chunking
	t := time.Now()
	file, err := os.Open(p.cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open input: %w", executor.ErrChunking, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat input: %w", executor.ErrChunking, err)
	}
	res.InputSize = info.Size()

	chunks, err := executor.LocateChunks(res.InputSize, p.cfg.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", executor.ErrChunking, err)
	}
	res.Chunks = len(chunks)
	p.logger.Printf("[PIPELINE:%s] Input %s is %s, %d chunks of %s",
		runID, p.cfg.InputPath, humanize.IBytes(uint64(res.InputSize)), len(chunks), humanize.IBytes(uint64(p.cfg.ChunkSize)))

	backend, err := p.openBackend(runID, res)
	if err != nil {
		return nil, err
	}
	defer backend.Close()
	step("chunking", t)

	processor := worker.NewProcessor(runID, file, res.InputSize, backend, p.logger)

	// Map phase
	t = time.Now()
	var records, dropped atomic.Int64
	p.phaseStarted(PhaseMap, len(chunks))
	err = worker.RunTasks(ctx, p.cfg.Parallelism, len(chunks), func(ctx context.Context, i int) error {
		stats, err := processor.ProcessMapTask(ctx, chunks[i])
		records.Add(int64(stats.Records))
		dropped.Add(int64(stats.Dropped))
		if err != nil {
			return err
		}
		p.taskDone(PhaseMap)
		return nil
	})
	if err != nil {
		p.logger.Printf("[PIPELINE:%s] Map phase failed: %v", runID, err)
		return nil, err
	}
	if err := backend.Seal(); err != nil {
		return nil, fmt.Errorf("%w: seal buckets: %w", executor.ErrMap, err)
	}
	res.Records, res.Dropped = records.Load(), dropped.Load()
	p.logger.Printf("[PIPELINE:%s] Map emitted %d records (%d malformed lines dropped)", runID, res.Records, res.Dropped)
	step("map", t)

	// Reduce phase
	t = time.Now()
	parts := make([][]stationstats.AggregateRow, p.cfg.Partitions)
	p.phaseStarted(PhaseReduce, p.cfg.Partitions)
	err = worker.RunTasks(ctx, p.cfg.Parallelism, p.cfg.Partitions, func(ctx context.Context, i int) error {
		rows, err := processor.ProcessReduceTask(ctx, i)
		if err != nil {
			return err
		}
		parts[i] = rows
		p.taskDone(PhaseReduce)
		return nil
	})
	if err != nil {
		p.logger.Printf("[PIPELINE:%s] Reduce phase failed: %v", runID, err)
		return nil, err
	}
	// Scratch storage must be gone before the output becomes visible
	if err := backend.Close(); err != nil {
		return nil, fmt.Errorf("%w: release scratch storage: %w", executor.ErrReduce, err)
	}
	step("reduce", t)

	// Merge
	t = time.Now()
	rs, err := Merge(parts)
	if err != nil {
		return nil, err
	}
	res.Stations = len(rs)
	step("merge", t)

	t = time.Now()
	if err := PublishResults(p.cfg.OutputPath, rs); err != nil {
		return nil, err
	}
	step("write", t)

	res.Total = time.Since(start)
	p.logger.Printf("[PIPELINE:%s] Wrote %d stations to %s in %s", runID, res.Stations, p.cfg.OutputPath, res.Total)

	return res, nil
}

// openBackend picks in-memory or spill buckets for this run.
func (p *Pipeline) openBackend(runID string, res *Result) (storage.Backend, error) {
	if !p.cfg.ShouldSpill(res.InputSize) {
		p.logger.Printf("[STORAGE] Run %s keeps %d buckets in memory", runID, p.cfg.Partitions)
		return storage.NewMemoryBackend(p.cfg.Partitions)
	}

	dir, err := storage.NewScratchDir(p.cfg.TempDir, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", executor.ErrChunking, err)
	}

	backend, err := storage.New(p.cfg.SpillBackend, dir, p.cfg.Partitions)
	if err != nil {
		return nil, fmt.Errorf("%w: open spill storage: %w", executor.ErrChunking, err)
	}

	res.Spilled = true
	res.SpillBackend = p.cfg.SpillBackend
	p.logger.Printf("[STORAGE] Run %s spills %d buckets to %s (%s)", runID, p.cfg.Partitions, dir, p.cfg.SpillBackend)

	return backend, nil
}

func (p *Pipeline) phaseStarted(phase Phase, tasks int) {
	if p.hooks.PhaseStarted != nil {
		p.hooks.PhaseStarted(phase, tasks)
	}
}

func (p *Pipeline) taskDone(phase Phase) {
	if p.hooks.TaskDone != nil {
		p.hooks.TaskDone(phase)
	}
}

// IsConfigError reports whether err was caused by an invalid configuration.
func IsConfigError(err error) bool {
	return errors.Is(err, stationstats.ErrInvalidConfig)
}
