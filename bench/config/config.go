// Package config holds the benchmark plan: which datasets to generate and
// time, with which index parameters, and where results go.
package config

import (
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ic-timon/annbench/bench/dataset"
	"github.com/ic-timon/annbench/indexer"
)

// Index build modes.
const (
	ModeMemory = "memory" // build in memory, then save
	ModeDisk   = "disk"   // on-disk build straight into the index file
)

// Plan is a benchmark plan. Zero fields are filled from Default by Load.
type Plan struct {
	Dim     int      `yaml:"dim"`
	Trees   int      `yaml:"trees"`
	Reads   int      `yaml:"reads"`
	NNs     int      `yaml:"nns"`
	SearchK int      `yaml:"search_k"` // <=0: nns * trees
	Metric  string   `yaml:"metric"`
	Labels  []string `yaml:"labels"`
	// Sizes overrides or adds dataset sizes by label.
	Sizes       map[string]int `yaml:"sizes"`
	Modes       []string       `yaml:"modes"`
	Concurrency int            `yaml:"concurrency"` // goroutines issuing find queries
	// SearchWorkers > 0 routes queries through the index's bounded worker pool.
	SearchWorkers int `yaml:"search_workers"`
	// Offheap allocates in-memory item blocks with C.calloc; ignored without cgo.
	Offheap   bool   `yaml:"offheap"`
	Seed      int64  `yaml:"seed"` // 0: derive from the clock
	DataDir   string `yaml:"data_dir"`
	ReportDir string `yaml:"report_dir"`
	// PromTextfile, when set, receives the results in Prometheus text format.
	PromTextfile string `yaml:"prom_textfile"`
}

// Default returns the plan of the classic run: 128-dim vectors, one tree,
// ten reads of 1000 neighbours, datasets s to xl, in memory then on disk.
func Default() *Plan {
	return &Plan{
		Dim:         128,
		Trees:       1,
		Reads:       10,
		NNs:         1000,
		SearchK:     -1,
		Metric:      indexer.Angular.String(),
		Labels:      slices.Clone(dataset.DefaultLabels),
		Modes:       []string{ModeMemory, ModeDisk},
		Concurrency: 1,
		DataDir:     ".",
		ReportDir:   "report",
	}
}

// Load reads a YAML plan from path over Default. An empty path returns Default.
func Load(path string) (*Plan, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read plan")
	}
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, errors.Wrapf(err, "parse plan %s", path)
	}
	return p, nil
}

// Validate reports the first problem with the plan.
func (p *Plan) Validate() error {
	if p.Dim <= 0 {
		return errors.Errorf("dim must be positive, got %d", p.Dim)
	}
	if p.Reads <= 0 {
		return errors.Errorf("reads must be positive, got %d", p.Reads)
	}
	if p.NNs <= 0 {
		return errors.Errorf("nns must be positive, got %d", p.NNs)
	}
	if p.Concurrency <= 0 {
		return errors.Errorf("concurrency must be positive, got %d", p.Concurrency)
	}
	if p.SearchWorkers < 0 {
		return errors.Errorf("search_workers must not be negative, got %d", p.SearchWorkers)
	}
	if _, err := indexer.ParseMetric(p.Metric); err != nil {
		return err
	}
	if len(p.Labels) == 0 {
		return errors.New("no dataset labels")
	}
	for _, l := range p.Labels {
		n, err := p.SizeOf(l)
		if err != nil {
			return errors.Wrapf(err, "known labels: %s", strings.Join(dataset.Labels(), ", "))
		}
		if n <= 0 {
			return errors.Errorf("dataset %q: size must be positive, got %d", l, n)
		}
	}
	if len(p.Modes) == 0 {
		return errors.New("no build modes")
	}
	for _, m := range p.Modes {
		if m != ModeMemory && m != ModeDisk {
			return errors.Errorf("unknown mode %q (want %s or %s)", m, ModeMemory, ModeDisk)
		}
	}
	return nil
}

// SizeOf returns the size of the dataset label, honouring Sizes.
func (p *Plan) SizeOf(label string) (int, error) {
	if n, ok := p.Sizes[label]; ok {
		return n, nil
	}
	return dataset.Size(label)
}

// MetricValue returns the parsed metric; call Validate first.
func (p *Plan) MetricValue() indexer.Metric {
	m, _ := indexer.ParseMetric(p.Metric)
	return m
}
