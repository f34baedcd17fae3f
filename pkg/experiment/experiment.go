package experiment

import (
	"runtime"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/runningwild/surge/pkg/config"
	"github.com/runningwild/surge/pkg/dispatch"
	"github.com/runningwild/surge/pkg/metrics"
	"github.com/runningwild/surge/pkg/storage"
	"github.com/runningwild/surge/pkg/workload"
)

// Result is the outcome of one offered-load level. Samples holds only
// completed requests; Generated counts everything the workload produced,
// so Generated - len(Samples) covers drops and failures together.
type Result struct {
	Samples     []workload.Sample
	OfferedRPS  float64
	AchievedRPS float64
	CPUUsage    float64
	Elapsed     time.Duration
	Generated   int
	Hist        *hdrhistogram.Histogram
}

// Latencies flattens the completed samples for reporting.
func (r *Result) Latencies() []float64 {
	lat := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		lat[i] = s.LatencyUS
	}
	return lat
}

// Run executes one experiment: it spawns cfg.Threads workers, each locked
// to an OS thread, aligns their start with an N+1 barrier the controller
// arrives at last, and times the experiment wall clock around the join.
// Per-worker sample slices are written only by the worker that owns them,
// so the merge after the join needs no locking. Samples still at the
// sentinel latency are discarded; achieved throughput counts only what
// completed, over the measured wall time. A run is never retried.
func Run(cfg *config.Config, dev storage.Device, offered float64, gen func(worker int) []workload.Sample) *Result {
	var starter sync.WaitGroup
	starter.Add(cfg.Threads + 1)

	opt := dispatch.Options{
		MaxCatchUpUS: cfg.MaxCatchUpUS,
		BlockCount:   cfg.BlockCount,
		Buffers:      storage.NewBufferPool(cfg.BlockCount * dev.BlockSize()),
	}

	perWorker := make([][]workload.Sample, cfg.Threads)
	var join sync.WaitGroup
	for i := 0; i < cfg.Threads; i++ {
		join.Add(1)
		go func(id int) {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			defer join.Done()
			perWorker[id] = dispatch.Worker(&starter, func() []workload.Sample { return gen(id) }, dev, opt)
		}(i)
	}

	// Workers generate their timelines, then everyone releases together.
	var mon metrics.CPUMonitor
	starter.Done()
	starter.Wait()

	start := time.Now()
	mon.Prime()
	join.Wait()
	elapsed := time.Since(start)

	cpuUsage := mon.Usage()

	hist := hdrhistogram.New(1, 60000000, 3)
	var completed []workload.Sample
	generated := 0
	for _, w := range perWorker {
		generated += len(w)
		for _, s := range w {
			if s.LatencyUS < 0 {
				continue
			}
			completed = append(completed, s)
			_ = hist.RecordValue(int64(s.LatencyUS))
		}
	}

	return &Result{
		Samples:     completed,
		OfferedRPS:  offered,
		AchievedRPS: float64(len(completed)) / elapsed.Seconds(),
		CPUUsage:    cpuUsage,
		Elapsed:     elapsed,
		Generated:   generated,
		Hist:        hist,
	}
}

// RunLevel runs one offered-load level with the standard profile:
// exponential inter-arrivals at offered/threads per worker, uniform
// aligned addresses, and cfg.PctSet percent writes.
func RunLevel(cfg *config.Config, dev storage.Device, offered float64) *Result {
	prof := workload.Profile{
		MeanArrivalUS: 1e6 / (offered / float64(cfg.Threads)),
		Blocks:        dev.Blocks(),
		BlockCount:    cfg.BlockCount,
		AlignBlocks:   cfg.AlignBlocks,
		PctSet:        cfg.PctSet,
	}
	gen := workload.NewGenerator(prof, cfg.WindowUS, time.Now().UnixNano())
	return Run(cfg, dev, offered, gen)
}
