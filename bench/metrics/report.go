package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// LatencyStats 延迟统计
type LatencyStats struct {
	P50Ms float64
	P95Ms float64
	P99Ms float64
	AvgMs float64
	N     int
}

// Percentile 计算切片中第 p 百分位（0-100），输入需已排序
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	return stat.Quantile(p/100, stat.Empirical, sorted, nil)
}

// LatencyStatsFromDurations 从耗时列表计算 P50/P95/P99 与均值
func LatencyStatsFromDurations(durations []time.Duration) LatencyStats {
	if len(durations) == 0 {
		return LatencyStats{}
	}
	ms := make([]float64, len(durations))
	for i, d := range durations {
		ms[i] = float64(d.Nanoseconds()) / 1e6
	}
	slices.Sort(ms)
	return LatencyStats{
		P50Ms: Percentile(ms, 50),
		P95Ms: Percentile(ms, 95),
		P99Ms: Percentile(ms, 99),
		AvgMs: stat.Mean(ms, nil),
		N:     len(ms),
	}
}

// Result is one benchmark run: one dataset in one build mode. Durations are in seconds.
type Result struct {
	RunID       string  `json:"run_id"`
	Label       string  `json:"label"`
	Size        int     `json:"size"`
	Build       float64 `json:"build"`
	Load        float64 `json:"load"`
	Find        float64 `json:"find"`
	Rebuild     float64 `json:"rebuild"`
	OnDisk      bool    `json:"on_disk"`
	Trees       int     `json:"trees"`
	IndexBytes  int64   `json:"index_bytes"`
	FindP50Ms   float64 `json:"find_p50_ms"`
	FindP95Ms   float64 `json:"find_p95_ms"`
	FindP99Ms   float64 `json:"find_p99_ms"`
	FindMeanMs  float64 `json:"find_mean_ms"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	// Heap allocation rate and GC cycles between the start and the end of build.
	BuildAllocMBps float64 `json:"build_alloc_mb_per_s"`
	BuildGCs       uint32  `json:"build_gcs"`
	Timestamp      string  `json:"timestamp"`
}

// String renders the headline figures of r.
func (r *Result) String() string {
	return fmt.Sprintf("{'size': %d, 'build': %g, 'load': %g, 'find': %g, 'rebuild': %g, 'on_disk': %s}",
		r.Size, r.Build, r.Load, r.Find, r.Rebuild, pyBool(r.OnDisk))
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

var csvHeader = []string{
	"RunID", "Label", "Size", "Build", "Load", "Find", "Rebuild", "OnDisk",
	"Trees", "IndexBytes", "FindP50Ms", "FindP95Ms", "FindP99Ms", "FindMeanMs",
	"HeapAllocMB", "BuildAllocMBps", "BuildGCs",
}

// WriteCSV 写入压测报告，每个数据集与构建模式一行
func WriteCSV(rows []*Result, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create report dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create report")
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{
			r.RunID,
			r.Label,
			strconv.Itoa(r.Size),
			fmt.Sprintf("%.6f", r.Build),
			fmt.Sprintf("%.6f", r.Load),
			fmt.Sprintf("%.6f", r.Find),
			fmt.Sprintf("%.6f", r.Rebuild),
			strconv.FormatBool(r.OnDisk),
			strconv.Itoa(r.Trees),
			strconv.FormatInt(r.IndexBytes, 10),
			fmt.Sprintf("%.2f", r.FindP50Ms),
			fmt.Sprintf("%.2f", r.FindP95Ms),
			fmt.Sprintf("%.2f", r.FindP99Ms),
			fmt.Sprintf("%.2f", r.FindMeanMs),
			fmt.Sprintf("%.2f", r.HeapAllocMB),
			fmt.Sprintf("%.2f", r.BuildAllocMBps),
			strconv.FormatUint(uint64(r.BuildGCs), 10),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// ReportPath 生成 dir 目录下带日期与运行 ID 的报告路径，同日多次运行互不覆盖
func ReportPath(dir, prefix, runID, ext string) string {
	name := prefix + time.Now().Format("20060102")
	if runID != "" {
		name += "_" + runID
	}
	return filepath.Join(dir, name+ext)
}

// WriteJSON 写入 JSON 报告（通用）
func WriteJSON(v any, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create report dir")
	}
	b, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode report")
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
