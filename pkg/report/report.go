package report

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
)

// ErrNoSamples is returned when a level completed zero requests.
// Percentiles over an empty sequence are undefined; callers emit
// SentinelRow instead.
var ErrNoSamples = errors.New("report: no completed samples")

// Row is one summary line of an experiment level. Latency fields are in
// microseconds.
type Row struct {
	Threads     int     `json:"threads"`
	OfferedRPS  float64 `json:"offered_rps"`
	AchievedRPS float64 `json:"rps"`
	CPUUsage    float64 `json:"cpu_usage"`
	Samples     int     `json:"samples"`
	MinUS       float64 `json:"min"`
	MeanUS      float64 `json:"mean"`
	P90US       float64 `json:"p90"`
	P99US       float64 `json:"p99"`
	P999US      float64 `json:"p999"`
	P9999US     float64 `json:"p9999"`
	MaxUS       float64 `json:"max"`
}

// Summarize sorts the completed latencies and reads the percentile cut
// points off at floor(count * p), nearest-rank style. It refuses an empty
// input with ErrNoSamples.
func Summarize(latUS []float64, threads int, offered, achieved, cpuUsage float64) (Row, error) {
	if len(latUS) == 0 {
		return Row{}, ErrNoSamples
	}

	lat := make([]float64, len(latUS))
	copy(lat, latUS)
	sort.Float64s(lat)

	mean, err := stats.Mean(lat)
	if err != nil {
		return Row{}, err
	}

	count := float64(len(lat))
	cut := func(p float64) float64 {
		i := int(count * p)
		if i >= len(lat) {
			i = len(lat) - 1
		}
		return lat[i]
	}

	return Row{
		Threads:     threads,
		OfferedRPS:  offered,
		AchievedRPS: achieved,
		CPUUsage:    cpuUsage,
		Samples:     len(lat),
		MinUS:       lat[0],
		MeanUS:      mean,
		P90US:       cut(0.9),
		P99US:       cut(0.99),
		P999US:      cut(0.999),
		P9999US:     cut(0.9999),
		MaxUS:       lat[len(lat)-1],
	}, nil
}

// SentinelRow is the defined outcome for a level that completed nothing:
// the row keeps its place in the sweep output with a zero sample count
// and zeroed latency fields.
func SentinelRow(threads int, offered, cpuUsage float64) Row {
	return Row{Threads: threads, OfferedRPS: offered, CPUUsage: cpuUsage}
}

// CSV renders the fixed 12-field result line:
// threads,offered_rps,rps,cpu_usage,samples,min,mean,p90,p99,p999,p9999,max
func (r Row) CSV() string {
	return fmt.Sprintf("%d,%.4f,%.4f,%.4f,%d,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f,%.4f",
		r.Threads, r.OfferedRPS, r.AchievedRPS, r.CPUUsage, r.Samples,
		r.MinUS, r.MeanUS, r.P90US, r.P99US, r.P999US, r.P9999US, r.MaxUS)
}

// Header returns the column names matching CSV.
func Header() string {
	return "threads,offered_rps,rps,cpu_usage,samples,min,mean,p90,p99,p999,p9999,max"
}

// WriteTable renders the sweep's rows as a human-readable table.
func WriteTable(w io.Writer, rows []Row) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Threads", "Offered", "Achieved", "CPU%", "Samples", "Mean (us)", "P99 (us)", "P99.9 (us)", "Max (us)"})
	for _, r := range rows {
		table.Append([]string{
			fmt.Sprintf("%d", r.Threads),
			fmt.Sprintf("%.0f", r.OfferedRPS),
			fmt.Sprintf("%.0f", r.AchievedRPS),
			fmt.Sprintf("%.1f", r.CPUUsage),
			fmt.Sprintf("%d", r.Samples),
			fmt.Sprintf("%.1f", r.MeanUS),
			fmt.Sprintf("%.1f", r.P99US),
			fmt.Sprintf("%.1f", r.P999US),
			fmt.Sprintf("%.1f", r.MaxUS),
		})
	}
	table.Render()
}
