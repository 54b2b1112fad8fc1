package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serviceMetrics struct {
	predictions *prometheus.CounterVec
	latency     prometheus.Histogram
	reloads     *prometheus.CounterVec
}

func newServiceMetrics(reg prometheus.Registerer) *serviceMetrics {
	factory := promauto.With(reg)

	return &serviceMetrics{
		predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cv_matcher_predictions_total",
			Help: "Match score requests by outcome",
		}, []string{"outcome"}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cv_matcher_prediction_duration_seconds",
			Help:    "Time spent computing a match score",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cv_matcher_model_reloads_total",
			Help: "Model reload attempts by result",
		}, []string{"result"}),
	}
}
