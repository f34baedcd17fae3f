package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every parameter for a benchmark run. It is built once at
// startup (file + command line), validated, and passed down read-only to
// the components that need it.
type Config struct {
	Target     string `yaml:"target"`      // device or file to benchmark
	EngineType string `yaml:"engine_type"` // "sync", "uring", or "mem"
	Direct     bool   `yaml:"direct"`      // open the target with O_DIRECT

	BlockSize   int    `yaml:"block_size"`   // bytes per device block
	TotalBlocks uint64 `yaml:"total_blocks"` // addressable blocks; 0 derives from target size
	AlignBlocks uint64 `yaml:"align_blocks"` // minimum transfer granularity, in blocks (power of two)

	WindowUS     float64 `yaml:"window_us"`      // synthetic time covered by each level
	MaxCatchUpUS float64 `yaml:"max_catchup_us"` // dispatch lateness budget

	RateStart float64 `yaml:"rate_start"` // offered req/s at the first level
	RateStop  float64 `yaml:"rate_stop"`  // offered req/s at the last level
	RateStep  float64 `yaml:"rate_step"`

	UringEntries uint   `yaml:"uring_entries"` // submission queue size for the uring engine
	ReportFile   string `yaml:"report_file"`   // optional JSON report destination
	LogLevel     string `yaml:"log_level"`

	// Experiment arguments, set from the command line rather than the file.
	Threads    int `yaml:"-"` // concurrent worker count
	BlockCount int `yaml:"-"` // blocks transferred per request
	PctSet     int `yaml:"-"` // percentage of requests that are writes
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	return &cfg, nil
}

// SetDefaults fills in every zero field that has a sane default.
func (c *Config) SetDefaults() {
	if c.EngineType == "" {
		c.EngineType = "sync"
	}
	if c.BlockSize == 0 {
		c.BlockSize = 512
	}
	if c.AlignBlocks == 0 {
		c.AlignBlocks = 8
	}
	if c.WindowUS == 0 {
		c.WindowUS = 5000000
	}
	if c.MaxCatchUpUS == 0 {
		c.MaxCatchUpUS = 5
	}
	if c.RateStart == 0 {
		c.RateStart = 20000
	}
	if c.RateStop == 0 {
		c.RateStop = 600000
	}
	if c.RateStep == 0 {
		c.RateStep = 20000
	}
	if c.UringEntries == 0 {
		c.UringEntries = 256
	}
	if c.EngineType == "mem" && c.TotalBlocks == 0 {
		c.TotalBlocks = 1 << 20
	}
}

// Validate rejects configurations the generator and dispatcher cannot run.
// In particular a non-positive offered rate would make the generated
// sequence unbounded, so the rate range is checked here, up front.
func (c *Config) Validate() error {
	if c.EngineType != "mem" && c.Target == "" {
		return fmt.Errorf("target is required for engine %q", c.EngineType)
	}
	if c.Threads <= 0 {
		return fmt.Errorf("threads must be > 0, got %d", c.Threads)
	}
	if c.BlockCount <= 0 {
		return fmt.Errorf("block_count must be > 0, got %d", c.BlockCount)
	}
	if c.PctSet < 0 || c.PctSet > 100 {
		return fmt.Errorf("pct_set must be in [0, 100], got %d", c.PctSet)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("block_size must be > 0, got %d", c.BlockSize)
	}
	if c.AlignBlocks == 0 || c.AlignBlocks&(c.AlignBlocks-1) != 0 {
		return fmt.Errorf("align_blocks must be a power of two, got %d", c.AlignBlocks)
	}
	if c.WindowUS <= 0 {
		return fmt.Errorf("window_us must be > 0, got %f", c.WindowUS)
	}
	if c.MaxCatchUpUS < 0 {
		return fmt.Errorf("max_catchup_us must be >= 0, got %f", c.MaxCatchUpUS)
	}
	if c.RateStart <= 0 || c.RateStop < c.RateStart || c.RateStep <= 0 {
		return fmt.Errorf("invalid rate range: start=%f stop=%f step=%f", c.RateStart, c.RateStop, c.RateStep)
	}
	switch c.EngineType {
	case "sync", "uring", "mem":
	default:
		return fmt.Errorf("unknown engine_type %q", c.EngineType)
	}
	return nil
}
