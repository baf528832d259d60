package suite

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ic-timon/annbench/bench/config"
	"github.com/ic-timon/annbench/bench/dataset"
	"github.com/ic-timon/annbench/bench/gen"
	"github.com/ic-timon/annbench/bench/metrics"
)

// Generate writes a random dataset for every label of the plan into p.DataDir.
// Dataset i of the plan uses seed p.Seed+i.
func Generate(ctx context.Context, p *config.Plan, log logrus.FieldLogger) error {
	for i, label := range p.Labels {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := p.SizeOf(label)
		if err != nil {
			return err
		}
		vecs := gen.RandomVectors(n, p.Dim, p.Seed+int64(i), log.WithField("dataset", label))
		if len(vecs) != n || (n > 0 && len(vecs[0]) != p.Dim) {
			return errors.Errorf("dataset %s: generated %d vectors, want %d of dim %d", label, len(vecs), n, p.Dim)
		}
		path := dataset.JSONPath(p.DataDir, label)
		if err := dataset.Save(path, vecs); err != nil {
			return errors.Wrapf(err, "save dataset %s", label)
		}
		log.WithField("dataset", label).WithField("path", path).Info("dataset saved")
	}
	return nil
}

// RunPlan benchmarks every dataset of the plan, mode by mode, in plan order.
func RunPlan(ctx context.Context, p *config.Plan, runID string, log logrus.FieldLogger) ([]*metrics.Result, error) {
	if err := os.MkdirAll(p.DataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	var results []*metrics.Result
	for _, mode := range p.Modes {
		for _, label := range p.Labels {
			res, err := Run(ctx, Options{
				RunID:         runID,
				Label:         label,
				DataDir:       p.DataDir,
				Dim:           p.Dim,
				Trees:         p.Trees,
				Reads:         p.Reads,
				NNs:           p.NNs,
				SearchK:       p.SearchK,
				Metric:        p.MetricValue(),
				OnDisk:        mode == config.ModeDisk,
				Concurrency:   p.Concurrency,
				Seed:          p.Seed,
				SearchWorkers: p.SearchWorkers,
				Offheap:       p.Offheap,
				Logger:        log,
			})
			if err != nil {
				return results, errors.Wrapf(err, "dataset %s (%s)", label, mode)
			}
			results = append(results, res)
		}
	}
	return results, nil
}
