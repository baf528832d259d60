package metrics

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// WritePromTextfile writes rows as gauges in the Prometheus text format, for
// the node exporter textfile collector. Each gauge is labelled by dataset and
// build mode.
func WritePromTextfile(rows []*Result, path string) error {
	labels := []string{"run_id", "dataset", "on_disk"}
	seconds := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "annbench",
		Name:      "operation_seconds",
		Help:      "Wall time of a benchmark operation; find is the mean per query.",
	}, append(labels, "operation"))
	items := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "annbench",
		Name:      "index_items",
		Help:      "Items in the index after build.",
	}, labels)
	indexBytes := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "annbench",
		Name:      "index_file_bytes",
		Help:      "Size of the index file after build.",
	}, labels)
	findQuantile := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "annbench",
		Name:      "find_latency_ms",
		Help:      "Find latency quantiles.",
	}, append(labels, "quantile"))
	findMean := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "annbench",
		Name:      "find_latency_mean_ms",
		Help:      "Mean find latency.",
	}, labels)
	buildAlloc := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "annbench",
		Name:      "build_alloc_bytes_per_second",
		Help:      "Heap allocation rate during build.",
	}, labels)
	buildGCs := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "annbench",
		Name:      "build_gc_cycles",
		Help:      "GC cycles completed during build.",
	}, labels)

	reg := prometheus.NewRegistry()
	reg.MustRegister(seconds, items, indexBytes, findQuantile, findMean, buildAlloc, buildGCs)
	for _, r := range rows {
		lv := []string{r.RunID, r.Label, strconv.FormatBool(r.OnDisk)}
		for op, v := range map[string]float64{"build": r.Build, "load": r.Load, "find": r.Find, "rebuild": r.Rebuild} {
			seconds.WithLabelValues(append(lv, op)...).Set(v)
		}
		items.WithLabelValues(lv...).Set(float64(r.Size))
		indexBytes.WithLabelValues(lv...).Set(float64(r.IndexBytes))
		findQuantile.WithLabelValues(append(lv, "0.5")...).Set(r.FindP50Ms)
		findQuantile.WithLabelValues(append(lv, "0.95")...).Set(r.FindP95Ms)
		findQuantile.WithLabelValues(append(lv, "0.99")...).Set(r.FindP99Ms)
		findMean.WithLabelValues(lv...).Set(r.FindMeanMs)
		buildAlloc.WithLabelValues(lv...).Set(r.BuildAllocMBps * (1 << 20))
		buildGCs.WithLabelValues(lv...).Set(float64(r.BuildGCs))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create textfile dir")
	}
	return errors.Wrap(prometheus.WriteToTextfile(path, reg), "write prometheus textfile")
}
