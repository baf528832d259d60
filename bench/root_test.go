package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ic-timon/annbench/bench/dataset"
	"github.com/ic-timon/annbench/indexer"
)

func writePlan(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dim: 8
trees: 2
reads: 3
nns: 5
seed: 11
labels: [s]
sizes:
  s: 64
`), 0o644))
	return path
}

func TestSetupLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	require.NoError(t, setupLogging("debug", "json"))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	require.NoError(t, setupLogging("warn", "text"))
	assert.Error(t, setupLogging("loud", "text"))
	assert.Error(t, setupLogging("info", "xml"))
}

func TestLoadPlanFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	root := newRootCmd()
	root.SetArgs([]string{"gen", "--config", writePlan(t, dir), "--dim", "4", "--data-dir", dir, "--log-level", "error"})
	require.NoError(t, root.Execute())
	vecs, err := dataset.Load(dataset.JSONPath(dir, "s"))
	require.NoError(t, err)
	assert.Len(t, vecs, 64)
	assert.Len(t, vecs[0], 4, "--dim overrides the plan file")
}

func TestRootGeneratesAndRuns(t *testing.T) {
	dir := t.TempDir()
	reports := filepath.Join(dir, "report")
	prom := filepath.Join(dir, "annbench.prom")
	root := newRootCmd()
	root.SetArgs([]string{
		"--config", writePlan(t, dir),
		"--data-dir", dir,
		"--report-dir", reports,
		"--prom-textfile", prom,
		"--concurrency", "2",
		"--log-level", "error",
	})
	require.NoError(t, root.Execute())

	assert.FileExists(t, dataset.JSONPath(dir, "s"))
	assert.FileExists(t, prom)
	entries, err := os.ReadDir(reports)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "csv and json report")

	idx := indexer.NewIndex(indexer.DefaultConfig(8))
	defer idx.Close()
	require.NoError(t, idx.Load(dataset.IndexPath(dir, "s")))
	assert.Equal(t, 65, idx.GetNItems(), "rebuild leaves one extra item")
}

func TestRunWithoutDatasetFails(t *testing.T) {
	dir := t.TempDir()
	root := newRootCmd()
	root.SetArgs([]string{"run", "--config", writePlan(t, dir), "--data-dir", dir, "--log-level", "error"})
	assert.Error(t, root.Execute())
}

func TestInvalidPlanRejected(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"gen", "--labels", "huge", "--data-dir", t.TempDir(), "--log-level", "error"})
	assert.Error(t, root.Execute())
}

func TestLoadPlanIndexFlags(t *testing.T) {
	f := &cliFlags{}
	cmd := &cobra.Command{Use: "annbench"}
	bindFlags(cmd, f)
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", writePlan(t, t.TempDir()),
		"--search-workers", "3",
		"--offheap",
	}))
	p, err := loadPlan(cmd, f)
	require.NoError(t, err)
	assert.Equal(t, 3, p.SearchWorkers)
	assert.True(t, p.Offheap)
	assert.Equal(t, 8, p.Dim, "unset flags keep the plan file value")
}

func TestRepeatedRunsKeepEarlierReports(t *testing.T) {
	dir := t.TempDir()
	reports := filepath.Join(dir, "report")
	plan := writePlan(t, dir)
	for i := 0; i < 2; i++ {
		root := newRootCmd()
		root.SetArgs([]string{
			"--config", plan,
			"--data-dir", dir,
			"--report-dir", reports,
			"--modes", "memory",
			"--search-workers", "2",
			"--log-level", "error",
		})
		require.NoError(t, root.Execute())
	}
	entries, err := os.ReadDir(reports)
	require.NoError(t, err)
	assert.Len(t, entries, 4, "each run writes its own csv and json")
}
