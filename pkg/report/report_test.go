package report

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func TestSummarizeKnownValues(t *testing.T) {
	// 1..100, shuffled: exact nearest-rank cut points are easy to state.
	lat := make([]float64, 100)
	for i := range lat {
		lat[i] = float64(i + 1)
	}
	rand.New(rand.NewSource(1)).Shuffle(len(lat), func(i, j int) { lat[i], lat[j] = lat[j], lat[i] })

	row, err := Summarize(lat, 4, 20000, 19000, 42.5)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if row.Samples != 100 || row.MinUS != 1 || row.MaxUS != 100 {
		t.Errorf("count/min/max = %d/%f/%f", row.Samples, row.MinUS, row.MaxUS)
	}
	if row.MeanUS != 50.5 {
		t.Errorf("mean = %f, want 50.5", row.MeanUS)
	}
	if row.P90US != 91 { // index floor(100 * 0.9) = 90 in the sorted slice
		t.Errorf("p90 = %f, want 91", row.P90US)
	}
	if row.P99US != 100 {
		t.Errorf("p99 = %f, want 100", row.P99US)
	}
}

func TestPercentilesMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	lat := make([]float64, 5000)
	for i := range lat {
		lat[i] = r.ExpFloat64() * 200
	}

	row, err := Summarize(lat, 8, 100000, 95000, 10)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if !(row.MinUS <= row.MeanUS && row.MeanUS <= row.MaxUS) {
		t.Errorf("min <= mean <= max violated: %f %f %f", row.MinUS, row.MeanUS, row.MaxUS)
	}
	if !(row.P90US <= row.P99US && row.P99US <= row.P999US && row.P999US <= row.P9999US && row.P9999US <= row.MaxUS) {
		t.Errorf("percentiles not monotonic: %f %f %f %f max=%f",
			row.P90US, row.P99US, row.P999US, row.P9999US, row.MaxUS)
	}
}

func TestSummarizeSingleSample(t *testing.T) {
	row, err := Summarize([]float64{12.5}, 1, 100, 100, 0)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	// Every cut point clamps to the only sample.
	if row.P90US != 12.5 || row.P9999US != 12.5 || row.MaxUS != 12.5 {
		t.Errorf("cut points = %f %f %f, want all 12.5", row.P90US, row.P9999US, row.MaxUS)
	}
}

func TestSummarizeEmptyIsError(t *testing.T) {
	if _, err := Summarize(nil, 1, 100, 0, 0); !errors.Is(err, ErrNoSamples) {
		t.Errorf("err = %v, want ErrNoSamples", err)
	}
}

func TestCSVShape(t *testing.T) {
	row, err := Summarize([]float64{1, 2, 3}, 2, 1000, 990, 12.3456)
	if err != nil {
		t.Fatal(err)
	}

	line := row.CSV()
	fields := strings.Split(line, ",")
	if len(fields) != 12 {
		t.Fatalf("CSV has %d fields, want 12: %s", len(fields), line)
	}
	if fields[0] != "2" {
		t.Errorf("threads field = %q", fields[0])
	}
	if fields[3] != "12.3456" {
		t.Errorf("cpu_usage field = %q, want fixed four decimals", fields[3])
	}
	if fields[4] != "3" {
		t.Errorf("samples field = %q", fields[4])
	}

	if got := len(strings.Split(Header(), ",")); got != 12 {
		t.Errorf("header has %d fields, want 12", got)
	}
}

func TestSentinelRowShape(t *testing.T) {
	row := SentinelRow(4, 40000, 3.25)
	fields := strings.Split(row.CSV(), ",")
	if len(fields) != 12 {
		t.Fatalf("sentinel CSV has %d fields, want 12", len(fields))
	}
	if row.Samples != 0 || row.MaxUS != 0 {
		t.Errorf("sentinel row carries data: %+v", row)
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	row, _ := Summarize([]float64{5, 10, 15}, 1, 2000, 1900, 1)
	WriteTable(&buf, []Row{row})

	out := buf.String()
	if !strings.Contains(out, "THREADS") && !strings.Contains(out, "Threads") {
		t.Errorf("table missing header: %s", out)
	}
	if !strings.Contains(out, "2000") {
		t.Errorf("table missing offered rate: %s", out)
	}
}
