package log

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// PrometheusHook counts log statements by level.
type PrometheusHook struct {
	counter *prometheus.CounterVec
}

// NewPrometheusHook registers log_statements_total on registerer.
func NewPrometheusHook(registerer prometheus.Registerer, service string) (*PrometheusHook, error) {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "log_statements_total",
			Help:        "Number of log statements, differentiated by log level.",
			ConstLabels: prometheus.Labels{"service": service},
		},
		[]string{"level"},
	)
	if err := registerer.Register(counter); err != nil {
		return nil, eris.Wrap(err, "registering log statement counter")
	}

	return &PrometheusHook{counter: counter}, nil
}

// Levels implements logrus.Hook.
func (h *PrometheusHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *PrometheusHook) Fire(entry *logrus.Entry) error {
	h.counter.WithLabelValues(entry.Level.String()).Inc()
	return nil
}
