package training

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spigell/cv-matcher/internal/classifier"
)

// pipelineMetrics lives in its own registry so a run can be exported as a
// node-exporter textfile without process collectors.
type pipelineMetrics struct {
	registry *prometheus.Registry

	stageDuration *prometheus.GaugeVec
	stageFailures *prometheus.CounterVec
	evaluation    *prometheus.GaugeVec
	examples      *prometheus.GaugeVec
	lastSuccess   prometheus.Gauge
}

func newPipelineMetrics() *pipelineMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &pipelineMetrics{
		registry: reg,
		stageDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cv_matcher_training_stage_duration_seconds",
			Help: "Duration of the last run of each training stage",
		}, []string{"stage"}),
		stageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cv_matcher_training_stage_failures_total",
			Help: "Number of training runs that failed in each stage",
		}, []string{"stage"}),
		evaluation: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cv_matcher_training_evaluation",
			Help: "Held-out evaluation metrics of the last trained model",
		}, []string{"metric"}),
		examples: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cv_matcher_training_examples",
			Help: "Labeled examples in the last loaded dataset",
		}, []string{"label"}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cv_matcher_training_last_success_timestamp_seconds",
			Help: "Unix time of the last successful training run",
		}),
	}
}

func (m *pipelineMetrics) observeEvaluation(metrics classifier.Metrics) {
	m.evaluation.WithLabelValues("accuracy").Set(metrics.Accuracy)
	m.evaluation.WithLabelValues("precision").Set(metrics.Precision)
	m.evaluation.WithLabelValues("recall").Set(metrics.Recall)
	m.evaluation.WithLabelValues("f1").Set(metrics.F1)
}
