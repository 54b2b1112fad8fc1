package training

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/cv-matcher/internal/classifier"
	"github.com/spigell/cv-matcher/internal/dataset"
	"github.com/spigell/cv-matcher/internal/dataset/datasettest"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Classifier.Trees = 20
	return cfg
}

func TestRunTrainsAndPersists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := datasettest.WriteCSV(t, dir, datasettest.Examples(24))
	out := filepath.Join(dir, "model", "model.json.gz")

	cfg := testConfig()
	cfg.MetricsFile = filepath.Join(dir, "training.prom")

	p := NewPipeline(cfg, zap.NewNop())
	report, err := p.Run(context.Background(), data, out)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ModelID)
	assert.Equal(t, out, report.ModelPath)
	assert.Equal(t, 12, report.Positives)
	assert.Equal(t, 12, report.Negatives)
	assert.Len(t, report.Stages, 3)

	loaded, err := classifier.New(classifier.DefaultOptions(), nil)
	require.NoError(t, err)
	require.NoError(t, loaded.Load(out))
	assert.Equal(t, report.ModelID, loaded.ModelID())

	assert.InDelta(t, report.Metrics.F1, testutil.ToFloat64(p.metrics.evaluation.WithLabelValues("f1")), 1e-12)
	assert.Equal(t, 12.0, testutil.ToFloat64(p.metrics.examples.WithLabelValues("positive")))
	assert.Positive(t, testutil.ToFloat64(p.metrics.lastSuccess))
	assert.Equal(t, 0, testutil.CollectAndCount(p.metrics.stageFailures))

	text, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(text), "cv_matcher_training_evaluation")
	assert.Contains(t, string(text), `stage="persist"`)
}

func TestRunReportsStageErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	badColumns := filepath.Join(dir, "columns.csv")
	require.NoError(t, os.WriteFile(badColumns, []byte("Resume,Label\nA,1\n"), 0o644))

	tests := []struct {
		name    string
		dataset string
		stage   Stage
		target  error
	}{
		{name: "missing file", dataset: filepath.Join(dir, "missing.csv"), stage: StageLoad, target: os.ErrNotExist},
		{name: "missing column", dataset: badColumns, stage: StageLoad, target: dataset.ErrDataset},
		{name: "too few rows", dataset: datasettest.WriteCSV(t, t.TempDir(), datasettest.Examples(1)), stage: StageTrain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := filepath.Join(t.TempDir(), "model.json.gz")
			p := NewPipeline(testConfig(), nil)

			report, err := p.Run(context.Background(), tt.dataset, out)
			require.Error(t, err)
			assert.Nil(t, report)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.stage, stageErr.Stage)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}

			assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.stageFailures.WithLabelValues(string(tt.stage))))
			assert.NoFileExists(t, out)
		})
	}
}

func TestRunCancelledKeepsPreviousArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := datasettest.WriteCSV(t, dir, datasettest.Examples(12))
	out := filepath.Join(dir, "model.json.gz")
	require.NoError(t, os.WriteFile(out, []byte("previous"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(testConfig(), nil).Run(ctx, data, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(content))
}

func TestRunCancelledAfterTrainingKeepsPreviousArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := datasettest.WriteCSV(t, dir, datasettest.Examples(12))
	out := filepath.Join(dir, "model.json.gz")

	_, err := NewPipeline(testConfig(), nil).Run(context.Background(), data, out)
	require.NoError(t, err)
	previous, err := os.ReadFile(out)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel once the new model has been fit, before it is persisted.
	core, observed := observer.New(zapcore.InfoLevel)
	log := zap.New(core, zap.Hooks(func(e zapcore.Entry) error {
		if e.Message == "model trained" {
			cancel()
		}
		return nil
	}))

	_, err = NewPipeline(testConfig(), log).Run(ctx, data, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StagePersist, stageErr.Stage)
	assert.Equal(t, 1, observed.FilterMessage("model trained").Len())

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, previous, content)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "only the dataset and the previous artifact remain")
}

func TestRunLogsStageFailure(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	_, err := NewPipeline(testConfig(), zap.New(core)).Run(context.Background(), filepath.Join(t.TempDir(), "none.csv"), "unused")
	require.Error(t, err)

	entries := observed.FilterMessage("stage failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(StageLoad), entries[0].ContextMap()["stage"])
}

func TestTrainModel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := datasettest.WriteCSV(t, dir, datasettest.Examples(12))
	out := filepath.Join(dir, "model.json.gz")

	assert.True(t, TrainModel(context.Background(), data, out, nil))
	assert.FileExists(t, out)

	assert.False(t, TrainModel(context.Background(), filepath.Join(dir, "missing.csv"), filepath.Join(dir, "other.json.gz"), nil))
	assert.NoFileExists(t, filepath.Join(dir, "other.json.gz"))
}
