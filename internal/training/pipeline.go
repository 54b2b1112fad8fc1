// Package training runs the offline pipeline that turns a labeled CSV
// dataset into a persisted match model.
package training

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/classifier"
	"github.com/spigell/cv-matcher/internal/dataset"
	"github.com/spigell/cv-matcher/internal/logger"
)

// Stage names a pipeline step.
type Stage string

const (
	StageLoad    Stage = "load_dataset"
	StageTrain   Stage = "train"
	StagePersist Stage = "persist"
)

// StageError is returned when a stage fails. Nothing is written to the
// output path unless the persist stage completes.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("training stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Config controls a pipeline run.
type Config struct {
	Columns    dataset.Columns    `mapstructure:"columns"`
	Classifier classifier.Options `mapstructure:"classifier"`
	// MetricsFile, when set, receives the run's metrics in the Prometheus
	// text format after a run.
	MetricsFile string `mapstructure:"metrics-file"`
}

// DefaultConfig uses the default dataset columns and classifier options.
func DefaultConfig() Config {
	return Config{
		Columns:    dataset.DefaultColumns(),
		Classifier: classifier.DefaultOptions(),
	}
}

// Report summarizes a successful run.
type Report struct {
	ModelID   string
	ModelPath string
	Metrics   classifier.Metrics
	Positives int
	Negatives int
	Stages    map[Stage]time.Duration
}

// Pipeline loads a dataset, trains a classifier and saves it.
type Pipeline struct {
	cfg     Config
	log     *zap.Logger
	metrics *pipelineMetrics
}

// NewPipeline returns a pipeline with its own metrics registry.
func NewPipeline(cfg Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		cfg:     cfg,
		log:     log,
		metrics: newPipelineMetrics(),
	}
}

// Registry exposes the pipeline metrics.
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.metrics.registry
}

// Run executes load_dataset, train and persist in order. Cancelling ctx
// before persist leaves any existing artifact at modelPath untouched.
func (p *Pipeline) Run(ctx context.Context, datasetPath, modelPath string) (*Report, error) {
	report := &Report{ModelPath: modelPath, Stages: make(map[Stage]time.Duration, 3)}
	defer p.exportMetrics()

	var examples []dataset.Example
	err := p.stage(ctx, report, StageLoad, func() error {
		var err error
		examples, err = dataset.LoadCSV(datasetPath, p.cfg.Columns)
		if err != nil {
			return err
		}
		report.Negatives, report.Positives = dataset.Balance(examples)
		p.metrics.examples.WithLabelValues("positive").Set(float64(report.Positives))
		p.metrics.examples.WithLabelValues("negative").Set(float64(report.Negatives))
		p.log.Info("dataset loaded",
			zap.String("path", datasetPath),
			zap.Int("examples", len(examples)),
			zap.Int("positive", report.Positives),
			zap.Int("negative", report.Negatives),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var model *classifier.Classifier
	err = p.stage(ctx, report, StageTrain, func() error {
		var err error
		model, err = classifier.New(p.cfg.Classifier, p.log)
		if err != nil {
			return err
		}
		report.Metrics, err = model.Train(ctx, examples)
		return err
	})
	if err != nil {
		return nil, err
	}
	report.ModelID = model.ModelID()
	p.metrics.observeEvaluation(report.Metrics)

	err = p.stage(ctx, report, StagePersist, func() error {
		return model.Save(modelPath)
	})
	if err != nil {
		return nil, err
	}

	p.metrics.lastSuccess.SetToCurrentTime()
	p.log.Info("training finished",
		zap.String(logger.FieldModelID, report.ModelID),
		zap.String("model_path", modelPath),
		zap.Float64("accuracy", report.Metrics.Accuracy),
		zap.Float64("precision", report.Metrics.Precision),
		zap.Float64("recall", report.Metrics.Recall),
		zap.Float64("f1", report.Metrics.F1),
	)
	return report, nil
}

func (p *Pipeline) stage(ctx context.Context, report *Report, stage Stage, fn func() error) error {
	log := p.log.With(zap.String(logger.FieldStage, string(stage)))

	if err := ctx.Err(); err != nil {
		p.metrics.stageFailures.WithLabelValues(string(stage)).Inc()
		log.Warn("training cancelled", zap.Error(err))
		return &StageError{Stage: stage, Err: err}
	}

	log.Debug("stage started")
	started := time.Now()
	err := fn()
	elapsed := time.Since(started)

	report.Stages[stage] = elapsed
	p.metrics.stageDuration.WithLabelValues(string(stage)).Set(elapsed.Seconds())

	if err != nil {
		p.metrics.stageFailures.WithLabelValues(string(stage)).Inc()
		log.Error("stage failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return &StageError{Stage: stage, Err: err}
	}

	log.Debug("stage finished", zap.Duration("elapsed", elapsed))
	return nil
}

func (p *Pipeline) exportMetrics() {
	if p.cfg.MetricsFile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(p.cfg.MetricsFile, p.metrics.registry); err != nil {
		p.log.Warn("failed to write metrics file", zap.String("path", p.cfg.MetricsFile), zap.Error(err))
	}
}

// TrainModel runs the pipeline with DefaultConfig and reports success. It
// never panics; every failure is logged.
func TrainModel(ctx context.Context, datasetPath, modelPath string, log *zap.Logger) (ok bool) {
	if log == nil {
		log = zap.NewNop()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("training panicked", zap.Any("panic", r))
			ok = false
		}
	}()

	if _, err := NewPipeline(DefaultConfig(), log).Run(ctx, datasetPath, modelPath); err != nil {
		log.Error("training failed", zap.Error(err))
		return false
	}
	return true
}
