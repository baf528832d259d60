package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ic-timon/annbench/bench/config"
	"github.com/ic-timon/annbench/bench/dataset"
	"github.com/ic-timon/annbench/bench/metrics"
	"github.com/ic-timon/annbench/bench/suite"
	"github.com/ic-timon/annbench/simd"
)

// cliFlags mirrors config.Plan; a flag overrides the plan file only when set.
type cliFlags struct {
	configPath    string
	dataDir       string
	reportDir     string
	labels        []string
	modes         []string
	dim           int
	trees         int
	reads         int
	nns           int
	searchK       int
	metric        string
	seed          int64
	concurrency   int
	searchWorkers int
	offheap       bool
	promTextfile  string
	logLevel      string
	logFormat     string
}

func newRootCmd() *cobra.Command {
	f := &cliFlags{}
	root := &cobra.Command{
		Use:   "annbench",
		Short: "Benchmark build, load, find and rebuild of a random projection forest index",
		Long: `annbench generates random integer vector datasets (s, m, l, xl) and times the
life cycle of an ANN index over each: build (in memory then save, or on-disk),
load, find and rebuild.

Without a subcommand it generates the datasets and then runs the benchmark.

Examples:
  annbench                                  # generate s..xl, benchmark in memory and on disk
  annbench gen --labels s,m                 # only write s.json and m.json
  annbench run --labels s --modes disk      # benchmark on-disk build of s
  annbench run --config plan.yaml --prom-textfile /var/lib/node_exporter/annbench.prom`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(f.logLevel, f.logFormat)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPlan(cmd, f)
			if err != nil {
				return err
			}
			if err := suite.Generate(cmd.Context(), p, logrus.StandardLogger()); err != nil {
				return err
			}
			return runBenchmark(cmd.Context(), p)
		},
	}

	bindFlags(root, f)
	root.AddCommand(newGenCmd(f), newRunCmd(f))
	return root
}

// bindFlags registers the plan flags on cmd and its subcommands.
func bindFlags(cmd *cobra.Command, f *cliFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "YAML benchmark plan")
	pf.StringVar(&f.dataDir, "data-dir", ".", "directory of <label>.json and <label>.ann")
	pf.StringVar(&f.reportDir, "report-dir", "report", "directory for CSV and JSON reports")
	pf.StringSliceVar(&f.labels, "labels", nil, "datasets to use ("+strings.Join(dataset.Labels(), ", ")+")")
	pf.StringSliceVar(&f.modes, "modes", nil, "build modes in order (memory, disk)")
	pf.IntVar(&f.dim, "dim", 128, "vector dimension")
	pf.IntVar(&f.trees, "trees", 1, "trees per index; more trees give better accuracy")
	pf.IntVar(&f.reads, "reads", 10, "find queries per dataset")
	pf.IntVar(&f.nns, "nns", 1000, "neighbours per find query")
	pf.IntVar(&f.searchK, "search-k", -1, "candidates inspected per query (-1: nns*trees)")
	pf.StringVar(&f.metric, "metric", "angular", "distance metric (angular, euclidean, manhattan, dot)")
	pf.Int64Var(&f.seed, "seed", 0, "random seed (0: time based)")
	pf.IntVar(&f.concurrency, "concurrency", 1, "goroutines issuing find queries")
	pf.IntVar(&f.searchWorkers, "search-workers", 0, "route queries through an index worker pool of this size (0: off)")
	pf.BoolVar(&f.offheap, "offheap", false, "allocate in-memory item blocks off the Go heap (requires cgo)")
	pf.StringVar(&f.promTextfile, "prom-textfile", "", "also write results in Prometheus text format to this file")
	pf.StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&f.logFormat, "log-format", "text", "log format (text, json)")
}

func newGenCmd(f *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "gen",
		Short: "Generate the random datasets as <label>.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPlan(cmd, f)
			if err != nil {
				return err
			}
			return suite.Generate(cmd.Context(), p, logrus.StandardLogger())
		},
	}
}

func newRunCmd(f *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Benchmark previously generated datasets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPlan(cmd, f)
			if err != nil {
				return err
			}
			return runBenchmark(cmd.Context(), p)
		},
	}
}

func setupLogging(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	logrus.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return errors.Errorf("unknown log format %q", format)
	}
	logrus.SetOutput(os.Stderr)
	return nil
}

// loadPlan reads the plan file and applies the flags set on the command line.
func loadPlan(cmd *cobra.Command, f *cliFlags) (*config.Plan, error) {
	p, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	changed := cmd.Flags().Changed
	if changed("data-dir") {
		p.DataDir = f.dataDir
	}
	if changed("report-dir") {
		p.ReportDir = f.reportDir
	}
	if changed("labels") {
		p.Labels = f.labels
	}
	if changed("modes") {
		p.Modes = f.modes
	}
	if changed("dim") {
		p.Dim = f.dim
	}
	if changed("trees") {
		p.Trees = f.trees
	}
	if changed("reads") {
		p.Reads = f.reads
	}
	if changed("nns") {
		p.NNs = f.nns
	}
	if changed("search-k") {
		p.SearchK = f.searchK
	}
	if changed("metric") {
		p.Metric = f.metric
	}
	if changed("seed") {
		p.Seed = f.seed
	}
	if changed("concurrency") {
		p.Concurrency = f.concurrency
	}
	if changed("search-workers") {
		p.SearchWorkers = f.searchWorkers
	}
	if changed("offheap") {
		p.Offheap = f.offheap
	}
	if changed("prom-textfile") {
		p.PromTextfile = f.promTextfile
	}
	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid plan")
	}
	logrus.WithField("seed", p.Seed).WithField("labels", p.Labels).WithField("modes", p.Modes).Debug("plan loaded")
	return p, nil
}

// runBenchmark runs the plan, prints one line per result and writes the reports.
func runBenchmark(ctx context.Context, p *config.Plan) error {
	runID := uuid.New().String()
	log := logrus.WithField("run_id", runID)
	log.WithField("simd", simd.Desc()).WithField("dim", p.Dim).WithField("trees", p.Trees).Info("benchmark started")

	results, runErr := suite.RunPlan(ctx, p, runID, log)
	for _, r := range results {
		if _, err := os.Stdout.WriteString(r.String() + "\n"); err != nil {
			return err
		}
	}
	if len(results) > 0 {
		if err := writeReports(p, runID, results, log); err != nil {
			return err
		}
	}
	return runErr
}

func writeReports(p *config.Plan, runID string, results []*metrics.Result, log logrus.FieldLogger) error {
	csvPath := metrics.ReportPath(p.ReportDir, "annbench_", runID, ".csv")
	if err := metrics.WriteCSV(results, csvPath); err != nil {
		return err
	}
	jsonPath := metrics.ReportPath(p.ReportDir, "annbench_", runID, ".json")
	if err := metrics.WriteJSON(results, jsonPath); err != nil {
		return err
	}
	log.WithField("csv", csvPath).WithField("json", jsonPath).Info("reports written")
	if p.PromTextfile != "" {
		if err := metrics.WritePromTextfile(results, p.PromTextfile); err != nil {
			return err
		}
		log.WithField("path", p.PromTextfile).Info("prometheus textfile written")
	}
	return nil
}
