package workload

import (
	"math/rand"
)

// SentinelLatency marks a sample whose storage operation never completed,
// either because it was dropped before dispatch or because the operation
// failed. Completed samples always carry a latency >= 0.
const SentinelLatency = -1.0

// Request is one scheduled storage operation in a worker's timeline.
type Request struct {
	StartUS float64 // scheduled offset from the synchronized start, in microseconds
	LBA     uint64  // target block address, aligned to the transfer granularity
	IsWrite bool
}

// Sample is a Request plus its measured outcome. LatencyUS transitions
// from SentinelLatency to a measured value at most once, when the storage
// operation completes successfully.
type Sample struct {
	Request
	LatencyUS float64
}

// Generate materializes one worker's timeline covering [startUS, endUS) of
// synthetic time. Each inter-arrival draw is accumulated onto the running
// offset, so StartUS is non-decreasing across the returned slice; the
// final record may overshoot endUS by one draw. Generation cannot fail,
// but an arrival process with non-positive expectation never terminates,
// which is why config validation rejects non-positive offered rates.
func Generate(arrival func() float64, address func() uint64, isWrite func() bool, startUS, endUS float64) []Sample {
	var w []Sample
	cur := startUS
	for cur < endUS {
		cur += arrival()
		w = append(w, Sample{
			Request:   Request{StartUS: cur, LBA: address(), IsWrite: isWrite()},
			LatencyUS: SentinelLatency,
		})
	}
	return w
}

// Profile describes the random processes behind one worker's timeline at
// one offered-load level: Poisson arrivals, uniform aligned addresses, and
// a fixed write percentage.
type Profile struct {
	MeanArrivalUS float64 // mean inter-arrival gap for this worker, in microseconds
	Blocks        uint64  // addressable blocks on the device
	BlockCount    int     // blocks transferred per request
	AlignBlocks   uint64  // minimum transfer granularity, power of two
	PctSet        int     // 0-100 percentage of writes
}

// Draws binds the profile to a seed and returns the three draw functions
// Generate consumes. Addresses are drawn so that the full transfer
// [LBA, LBA+BlockCount) stays inside the device, then rounded down to the
// alignment granularity. The address stream and the read/write classifier
// share one source, the arrival stream gets its own.
func (p Profile) Draws(seed int64) (arrival func() float64, address func() uint64, isWrite func() bool) {
	ar := rand.New(rand.NewSource(seed))
	dr := rand.New(rand.NewSource(seed + 1))

	arrival = func() float64 {
		return ar.ExpFloat64() * p.MeanArrivalUS
	}

	span := int64(1)
	if p.Blocks > uint64(p.BlockCount) {
		span = int64(p.Blocks-uint64(p.BlockCount)) + 1
	}
	mask := ^(p.AlignBlocks - 1)
	address = func() uint64 {
		return uint64(dr.Int63n(span)) & mask
	}

	isWrite = func() bool {
		return dr.Intn(100) < p.PctSet
	}
	return arrival, address, isWrite
}

// NewGenerator returns the per-worker timeline factory for one load
// level. Workers are seeded apart so their address and arrival streams
// differ.
func NewGenerator(prof Profile, windowUS float64, seed int64) func(worker int) []Sample {
	return func(worker int) []Sample {
		arrival, address, isWrite := prof.Draws(seed + int64(worker)*7919)
		return Generate(arrival, address, isWrite, 0, windowUS)
	}
}
