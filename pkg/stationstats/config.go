package stationstats

import (
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// SpillMode selects where buckets live during partitioning.
type SpillMode string

const (
	// ModeAuto spills when the input is larger than Config.SpillThreshold.
	ModeAuto   SpillMode = "auto"
	ModeMemory SpillMode = "memory"
	ModeSpill  SpillMode = "spill"
)

// SpillBackend selects the scratch storage used in spill mode.
type SpillBackend string

const (
	// BackendFile keeps one temp file of `key;value` lines per bucket.
	BackendFile SpillBackend = "file"
	// BackendBbolt keeps every bucket in one scratch bbolt database.
	BackendBbolt SpillBackend = "bbolt"
)

const (
	DefaultChunkSize      = 1 << 20
	DefaultSpillThreshold = 512 << 20
)

// Config holds everything a single run needs.
type Config struct {
	InputPath      string
	OutputPath     string
	ChunkSize      int64 // Nominal chunk size in bytes
	Partitions     int   // Number of buckets
	Parallelism    int   // Worker pool size for both phases
	Mode           SpillMode
	SpillBackend   SpillBackend
	SpillThreshold int64  // Input size above which ModeAuto spills
	TempDir        string // Parent directory for per-run scratch storage
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		ChunkSize:      DefaultChunkSize,
		Partitions:     runtime.NumCPU(),
		Parallelism:    runtime.NumCPU(),
		Mode:           ModeAuto,
		SpillBackend:   BackendFile,
		SpillThreshold: DefaultSpillThreshold,
		TempDir:        os.TempDir(),
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	switch {
	case c.InputPath == "":
		return fmt.Errorf("%w: input path is required", ErrInvalidConfig)
	case c.OutputPath == "":
		return fmt.Errorf("%w: output path is required", ErrInvalidConfig)
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: %w: %d", ErrInvalidConfig, ErrInvalidChunkSize, c.ChunkSize)
	case c.Partitions <= 0:
		return fmt.Errorf("%w: partition count must be positive, got %d", ErrInvalidConfig, c.Partitions)
	case c.Parallelism <= 0:
		return fmt.Errorf("%w: parallelism must be positive, got %d", ErrInvalidConfig, c.Parallelism)
	case c.SpillThreshold < 0:
		return fmt.Errorf("%w: spill threshold must not be negative, got %d", ErrInvalidConfig, c.SpillThreshold)
	}

	switch c.Mode {
	case ModeAuto, ModeMemory, ModeSpill:
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, ErrUnknownSpillMode, c.Mode)
	}

	switch c.SpillBackend {
	case BackendFile, BackendBbolt:
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, ErrUnknownSpillBackend, c.SpillBackend)
	}

	return nil
}

// ShouldSpill reports whether an input of the given size is partitioned
// into scratch storage rather than memory.
func (c Config) ShouldSpill(inputSize int64) bool {
	switch c.Mode {
	case ModeSpill:
		return true
	case ModeMemory:
		return false
	default:
		return inputSize > c.SpillThreshold
	}
}

// fileConfig is the YAML shape of a config file. Sizes are human readable
// ("4MiB", "512 MB"). Unset fields keep their defaults.
type fileConfig struct {
	Version        string `yaml:"version"`
	Input          string `yaml:"input"`
	Output         string `yaml:"output"`
	ChunkSize      string `yaml:"chunk_size"`
	Partitions     *int   `yaml:"partitions"`
	Parallelism    *int   `yaml:"parallelism"`
	Mode           string `yaml:"mode"`
	SpillBackend   string `yaml:"spill_backend"`
	SpillThreshold string `yaml:"spill_threshold"`
	TempDir        string `yaml:"temp_dir"`
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes YAML config data on top of DefaultConfig.
func ParseConfig(data []byte) (*Config, error) {
	var err error
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := CheckVersion(fc.Version); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if fc.Input != "" {
		cfg.InputPath = fc.Input
	}
	if fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if fc.ChunkSize != "" {
		if cfg.ChunkSize, err = ParseSize(fc.ChunkSize); err != nil {
			return nil, fmt.Errorf("chunk_size: %w", err)
		}
	}
	if fc.Partitions != nil {
		cfg.Partitions = *fc.Partitions
	}
	if fc.Parallelism != nil {
		cfg.Parallelism = *fc.Parallelism
	}
	if fc.Mode != "" {
		cfg.Mode = SpillMode(fc.Mode)
	}
	if fc.SpillBackend != "" {
		cfg.SpillBackend = SpillBackend(fc.SpillBackend)
	}
	if fc.SpillThreshold != "" {
		if cfg.SpillThreshold, err = ParseSize(fc.SpillThreshold); err != nil {
			return nil, fmt.Errorf("spill_threshold: %w", err)
		}
	}
	if fc.TempDir != "" {
		cfg.TempDir = fc.TempDir
	}

	return &cfg, nil
}

// ParseSize parses a human readable byte size such as "1MiB" or "64 kB".
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: size %s overflows", ErrInvalidConfig, s)
	}
	return int64(n), nil
}
