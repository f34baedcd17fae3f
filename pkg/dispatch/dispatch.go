package dispatch

import (
	"sync"
	"time"

	"github.com/runningwild/surge/pkg/storage"
	"github.com/runningwild/surge/pkg/workload"
)

// Options carries the per-request dispatch parameters.
type Options struct {
	MaxCatchUpUS float64 // lateness budget before a sample is dropped
	BlockCount   int     // blocks transferred per request
	Buffers      *storage.BufferPool
}

// Worker owns one benchmark thread: it materializes its timeline once,
// crosses the start barrier, and replays the timeline against dev. The
// returned slice is the same one gen produced, with LatencyUS filled in
// for every request that completed.
//
// The WaitGroup crossing is the synchronization fence: Done/Wait give the
// happens-before edge that orders the reference clock read after the
// release on every participating thread, so latencies measured by
// different workers share one origin.
func Worker(starter *sync.WaitGroup, gen func() []workload.Sample, dev storage.Device, opt Options) []workload.Sample {
	w := gen()

	// Synchronized start of load generation.
	starter.Done()
	starter.Wait()
	expStart := time.Now()

	replay(w, expStart, dev, opt)
	return w
}

// replay walks the timeline in scheduled order. Requests running more
// than the lateness budget behind schedule are dropped without ever
// touching storage, bounding the coordinated-omission bias a delayed
// dispatch would otherwise fold into the latency distribution. Admitted
// requests are issued concurrently, each in its own goroutine with its
// own transfer buffer; completions may land in any order. The WaitGroup
// is credited for the full sequence up front and debited once per drop,
// so it converges without waiting on work that was never issued.
func replay(w []workload.Sample, expStart time.Time, dev storage.Device, opt Options) {
	var wg sync.WaitGroup
	wg.Add(len(w))

	for i := range w {
		elapsed := usSince(expStart)
		if elapsed < w[i].StartUS {
			time.Sleep(time.Duration((w[i].StartUS - elapsed) * float64(time.Microsecond)))
			elapsed = usSince(expStart)
		}
		if elapsed-w[i].StartUS > opt.MaxCatchUpUS {
			wg.Done() // dropped, never dispatched
			continue
		}

		dispatched := time.Now()
		go func(s *workload.Sample) {
			defer wg.Done()
			buf := opt.Buffers.Get()
			defer opt.Buffers.Put(buf)

			var err error
			if s.IsWrite {
				err = dev.WriteBlocks(buf, s.LBA, opt.BlockCount)
			} else {
				err = dev.ReadBlocks(buf, s.LBA, opt.BlockCount)
			}
			if err == nil {
				// Sole write to this slot; every goroutine owns a
				// distinct index.
				s.LatencyUS = usSince(dispatched)
			}
		}(&w[i])
	}

	wg.Wait()
}

func usSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Microsecond)
}
