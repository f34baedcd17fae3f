package sweep

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/runningwild/surge/pkg/config"
	"github.com/runningwild/surge/pkg/storage"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		EngineType:   "mem",
		Threads:      2,
		BlockCount:   1,
		PctSet:       20,
		WindowUS:     50000,
		MaxCatchUpUS: 1000000, // avoid jitter drops in CI
		TotalBlocks:  1 << 16,
		RateStart:    1000,
		RateStop:     3000,
		RateStep:     1000,
	}
	cfg.SetDefaults()
	return cfg
}

func TestSweepEmitsOneRowPerLevel(t *testing.T) {
	cfg := testConfig()
	dev := storage.NewMemDevice(cfg.TotalBlocks, cfg.BlockSize)
	defer dev.Close()

	var out bytes.Buffer
	rows, err := New(cfg, dev, &out).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (levels 1000, 2000, 3000)", len(rows))
	}
	for i, want := range []float64{1000, 2000, 3000} {
		if rows[i].OfferedRPS != want {
			t.Errorf("row %d offered = %f, want %f", i, rows[i].OfferedRPS, want)
		}
		if rows[i].Samples == 0 {
			t.Errorf("row %d completed nothing", i)
		}
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("emitted %d lines, want 3", len(lines))
	}
	for i, line := range lines {
		if got := len(strings.Split(line, ",")); got != 12 {
			t.Errorf("line %d has %d fields, want 12: %s", i, got, line)
		}
	}
}

func TestSweepWritesReport(t *testing.T) {
	cfg := testConfig()
	cfg.RateStop = cfg.RateStart // single level keeps the test quick
	cfg.ReportFile = filepath.Join(t.TempDir(), "report.json")

	dev := storage.NewMemDevice(cfg.TotalBlocks, cfg.BlockSize)
	defer dev.Close()

	var out bytes.Buffer
	if _, err := New(cfg, dev, &out).Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(cfg.ReportFile)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if rep.RunID == "" {
		t.Error("report missing run id")
	}
	if len(rep.Rows) != 1 {
		t.Errorf("report has %d rows, want 1", len(rep.Rows))
	}
	if rep.Engine != "mem" {
		t.Errorf("report engine = %q", rep.Engine)
	}
}
