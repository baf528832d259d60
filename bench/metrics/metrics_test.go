package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []*Result {
	return []*Result{
		{RunID: "r1", Label: "s", Size: 10000, Build: 1.5, Load: 0.001, Find: 0.02, Rebuild: 1.7, Trees: 1, IndexBytes: 4 << 20, FindP50Ms: 19, FindP95Ms: 23, FindP99Ms: 25, FindMeanMs: 20, BuildAllocMBps: 2, BuildGCs: 3},
		{RunID: "r1", Label: "s", Size: 10000, Build: 1.2, Load: 0.001, Find: 0.02, Rebuild: 1.6, OnDisk: true, Trees: 1},
	}
}

func TestLatencyStatsFromDurations(t *testing.T) {
	var ds []time.Duration
	for i := 100; i >= 1; i-- {
		ds = append(ds, time.Duration(i)*time.Millisecond)
	}
	s := LatencyStatsFromDurations(ds)
	assert.Equal(t, 100, s.N)
	assert.InDelta(t, 50, s.P50Ms, 1)
	assert.InDelta(t, 99, s.P99Ms, 1)
	assert.InDelta(t, 50.5, s.AvgMs, 1e-9)

	assert.Equal(t, LatencyStats{}, LatencyStatsFromDurations(nil))
}

func TestPercentileBounds(t *testing.T) {
	sorted := []float64{1, 2, 3}
	assert.Equal(t, 1.0, Percentile(sorted, 0))
	assert.Equal(t, 3.0, Percentile(sorted, 100))
	assert.Zero(t, Percentile(nil, 50))
}

func TestResultString(t *testing.T) {
	r := &Result{Size: 10, Build: 1.5, Load: 0.25, Find: 0.125, Rebuild: 2, OnDisk: true}
	assert.Equal(t, "{'size': 10, 'build': 1.5, 'load': 0.25, 'find': 0.125, 'rebuild': 2, 'on_disk': True}", r.String())
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report", "bench.csv")
	require.NoError(t, WriteCSV(sampleRows(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "s", records[1][1])
	assert.Equal(t, "true", records[2][7])
	assert.Equal(t, "23.00", records[1][11])
	assert.Equal(t, "20.00", records[1][13])
	assert.Equal(t, "3", records[1][16])
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.json")
	require.NoError(t, WriteJSON(sampleRows(), path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []*Result
	require.NoError(t, gojson.Unmarshal(raw, &got))
	assert.Equal(t, sampleRows(), got)
}

func TestReportPath(t *testing.T) {
	p := ReportPath("out", "annbench_", "run-1", ".csv")
	assert.Equal(t, "out", filepath.Dir(p))
	assert.True(t, strings.HasPrefix(filepath.Base(p), "annbench_"))
	assert.True(t, strings.HasSuffix(p, time.Now().Format("20060102")+"_run-1.csv"))

	// Two runs on the same day write different files.
	assert.NotEqual(t, p, ReportPath("out", "annbench_", "run-2", ".csv"))
	assert.True(t, strings.HasSuffix(ReportPath("out", "annbench_", "", ".csv"), time.Now().Format("20060102")+".csv"))
}

func TestWritePromTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prom", "annbench.prom")
	require.NoError(t, WritePromTextfile(sampleRows(), path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, `annbench_operation_seconds{dataset="s",on_disk="false",operation="build",run_id="r1"} 1.5`)
	assert.Contains(t, text, `annbench_index_items{dataset="s",on_disk="true",run_id="r1"} 10000`)
	assert.Contains(t, text, `annbench_find_latency_ms{dataset="s",on_disk="false",quantile="0.99",run_id="r1"} 25`)
	assert.Contains(t, text, `annbench_find_latency_ms{dataset="s",on_disk="false",quantile="0.95",run_id="r1"} 23`)
	assert.Contains(t, text, `annbench_find_latency_mean_ms{dataset="s",on_disk="false",run_id="r1"} 20`)
	assert.Contains(t, text, `annbench_build_gc_cycles{dataset="s",on_disk="false",run_id="r1"} 3`)
	assert.Contains(t, text, `annbench_build_alloc_bytes_per_second{dataset="s",on_disk="false",run_id="r1"} 2.097152e+06`)
	assert.Contains(t, text, "annbench_index_file_bytes")
}

func TestSnapshot(t *testing.T) {
	before := Take()
	time.Sleep(time.Millisecond)
	after := Take()
	rate, _ := Diff(before, after)
	assert.GreaterOrEqual(t, rate, 0.0)
	assert.Positive(t, after.HeapAllocMB())
	assert.Contains(t, after.Fields(), "heap_alloc")

	rate, gc := Diff(after, before)
	assert.Zero(t, rate)
	assert.Zero(t, gc)
}
