package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	predictions   *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	unknownTokens prometheus.Counter
	latency       prometheus.Histogram
	inFlight      prometheus.Gauge
}

// newMetrics registers the server collectors, plus Go runtime and process
// collectors, on reg.
func newMetrics(reg *prometheus.Registry) *metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)

	return &metrics{
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiment_predictions_total",
				Help: "Reviews classified, by predicted sentiment",
			},
			[]string{"sentiment"},
		),
		rejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiment_rejected_requests_total",
				Help: "Prediction requests rejected before or during scoring, by reason",
			},
			[]string{"reason"},
		),
		unknownTokens: f.NewCounter(prometheus.CounterOpts{
			Name: "sentiment_unknown_token_total",
			Help: "Reviews rejected because a token is not in the vocabulary",
		}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentiment_predict_duration_seconds",
			Help:    "Time spent encoding and scoring one review",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "sentiment_predictions_in_flight",
			Help: "Predictions currently holding a worker slot",
		}),
	}
}
