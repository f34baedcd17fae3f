package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "surge.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "target: /dev/nvme0n1\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.EngineType != "sync" {
		t.Errorf("EngineType = %q, want sync", cfg.EngineType)
	}
	if cfg.BlockSize != 512 {
		t.Errorf("BlockSize = %d, want 512", cfg.BlockSize)
	}
	if cfg.AlignBlocks != 8 {
		t.Errorf("AlignBlocks = %d, want 8", cfg.AlignBlocks)
	}
	if cfg.WindowUS != 5000000 {
		t.Errorf("WindowUS = %f, want 5000000", cfg.WindowUS)
	}
	if cfg.MaxCatchUpUS != 5 {
		t.Errorf("MaxCatchUpUS = %f, want 5", cfg.MaxCatchUpUS)
	}
	if cfg.RateStart != 20000 || cfg.RateStop != 600000 || cfg.RateStep != 20000 {
		t.Errorf("rate range = %f..%f step %f", cfg.RateStart, cfg.RateStop, cfg.RateStep)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
target: /tmp/bench.dat
engine_type: mem
total_blocks: 1024
window_us: 100000
rate_start: 1000
rate_stop: 2000
rate_step: 500
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.EngineType != "mem" || cfg.TotalBlocks != 1024 || cfg.WindowUS != 100000 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{Target: "/dev/null", Threads: 4, BlockCount: 8, PctSet: 50}
		c.SetDefaults()
		return c
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threads", func(c *Config) { c.Threads = 0 }},
		{"zero block count", func(c *Config) { c.BlockCount = 0 }},
		{"pct_set over 100", func(c *Config) { c.PctSet = 101 }},
		{"negative pct_set", func(c *Config) { c.PctSet = -1 }},
		{"missing target", func(c *Config) { c.Target = "" }},
		{"non power of two alignment", func(c *Config) { c.AlignBlocks = 6 }},
		{"negative rate", func(c *Config) { c.RateStart = -100 }},
		{"stop below start", func(c *Config) { c.RateStop = c.RateStart - 1 }},
		{"unknown engine", func(c *Config) { c.EngineType = "dma" }},
		{"zero window", func(c *Config) { c.WindowUS = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
