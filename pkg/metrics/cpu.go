package metrics

import (
	"github.com/shirou/gopsutil/v4/cpu"
)

// CPUMonitor measures system-wide CPU utilization over a window, as the
// busy share of total CPU time between Prime and Usage.
type CPUMonitor struct {
	base []cpu.TimesStat
}

// Prime snapshots the counters at the start of the window. A failed
// snapshot leaves the monitor inert and Usage reporting zero.
func (m *CPUMonitor) Prime() {
	ts, err := cpu.Times(false)
	if err != nil {
		m.base = nil
		return
	}
	m.base = ts
}

// Usage returns the percentage of CPU time spent busy since Prime.
func (m *CPUMonitor) Usage() float64 {
	if len(m.base) == 0 {
		return 0
	}
	ts, err := cpu.Times(false)
	if err != nil || len(ts) == 0 {
		return 0
	}
	busy := busyTime(ts[0]) - busyTime(m.base[0])
	total := totalTime(ts[0]) - totalTime(m.base[0])
	if total <= 0 {
		return 0
	}
	return busy / total * 100
}

func busyTime(t cpu.TimesStat) float64 {
	return totalTime(t) - t.Idle - t.Iowait
}

func totalTime(t cpu.TimesStat) float64 {
	return t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq +
		t.Softirq + t.Steal + t.Guest + t.GuestNice
}
