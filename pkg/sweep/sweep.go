package sweep

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"

	"github.com/runningwild/surge/pkg/analyze"
	"github.com/runningwild/surge/pkg/config"
	"github.com/runningwild/surge/pkg/experiment"
	"github.com/runningwild/surge/pkg/logging"
	"github.com/runningwild/surge/pkg/report"
	"github.com/runningwild/surge/pkg/storage"
)

// Sweeper drives a fixed thread count across increasing offered-load
// levels, emitting one result row per level. Levels are independent; the
// sweep never exits early and never adapts the rate to what it measures.
type Sweeper struct {
	cfg *config.Config
	dev storage.Device
	out io.Writer
}

func New(cfg *config.Config, dev storage.Device, out io.Writer) *Sweeper {
	return &Sweeper{cfg: cfg, dev: dev, out: out}
}

// Report is the JSON artifact written when the config names a report file.
type Report struct {
	RunID   string       `json:"run_id"`
	Created time.Time    `json:"created"`
	Target  string       `json:"target"`
	Engine  string       `json:"engine"`
	Rows    []report.Row `json:"rows"`
}

func (s *Sweeper) Run() ([]report.Row, error) {
	runID := uuid.New().String()
	logging.Infof("run %s: sweeping %.0f..%.0f req/s step %.0f, %d threads, %d blocks/req, %d%% writes",
		runID, s.cfg.RateStart, s.cfg.RateStop, s.cfg.RateStep, s.cfg.Threads, s.cfg.BlockCount, s.cfg.PctSet)

	var rows []report.Row
	var points []analyze.Point
	total := hdrhistogram.New(1, 60000000, 3)

	for rate := s.cfg.RateStart; rate <= s.cfg.RateStop; rate += s.cfg.RateStep {
		res := experiment.RunLevel(s.cfg, s.dev, rate)

		row, err := report.Summarize(res.Latencies(), s.cfg.Threads, rate, res.AchievedRPS, res.CPUUsage)
		if errors.Is(err, report.ErrNoSamples) {
			logging.Warnf("no completed samples at %.0f req/s (%d generated); emitting sentinel row", rate, res.Generated)
			row = report.SentinelRow(s.cfg.Threads, rate, res.CPUUsage)
		} else if err != nil {
			return nil, err
		}

		fmt.Fprintln(s.out, row.CSV())
		rows = append(rows, row)
		points = append(points, analyze.Point{X: rate, Y: res.AchievedRPS})
		total.Merge(res.Hist)

		logging.Debugf("level %.0f: generated=%d completed=%d elapsed=%v",
			rate, res.Generated, len(res.Samples), res.Elapsed)
	}

	knee := analyze.FindKnee(points)
	logging.Infof("saturation knee near %.0f offered req/s (achieved %.0f)", knee.X, knee.Y)
	if total.TotalCount() > 0 {
		logging.Infof("sweep-wide latency over %d samples: p50=%dus p99=%dus p99.9=%dus",
			total.TotalCount(), total.ValueAtQuantile(50), total.ValueAtQuantile(99), total.ValueAtQuantile(99.9))
	}

	if s.cfg.ReportFile != "" {
		if err := s.writeReport(runID, rows); err != nil {
			logging.Errorf("failed to write report: %v", err)
		}
	}

	return rows, nil
}

func (s *Sweeper) writeReport(runID string, rows []report.Row) error {
	data, err := json.MarshalIndent(Report{
		RunID:   runID,
		Created: time.Now().UTC(),
		Target:  s.cfg.Target,
		Engine:  s.cfg.EngineType,
		Rows:    rows,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.cfg.ReportFile, data, 0644); err != nil {
		return err
	}
	logging.Infof("report written to %s", s.cfg.ReportFile)
	return nil
}
