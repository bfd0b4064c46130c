// Package metrics holds the Prometheus metrics for gateway operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	DisabledRejected  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dcbgate_operations_total",
			Help: "Gateway operations by operator, operation and outcome",
		}, []string{"operator", "operation", "outcome"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dcbgate_operation_duration_seconds",
			Help:    "End-to-end operation duration including the operator call",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"operator", "operation"}),
		DisabledRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dcbgate_disabled_rejections_total",
			Help: "Operations rejected because the operator is disabled",
		}, []string{"operator"}),
	}
}

func (m *Metrics) ObserveOperation(operatorCode, operation string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.Operations.WithLabelValues(operatorCode, operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operatorCode, operation).Observe(d.Seconds())
}

func (m *Metrics) IncDisabledRejection(operatorCode string) {
	if m == nil {
		return
	}
	m.DisabledRejected.WithLabelValues(operatorCode).Inc()
}
