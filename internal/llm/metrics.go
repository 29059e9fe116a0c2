package llm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptstock_llm_operations_total",
			Help: "Client operations by mode, operation and outcome",
		},
		[]string{"mode", "op", "outcome"},
	)
	opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptstock_llm_operation_duration_seconds",
			Help:    "Client operation latency",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"mode", "op"},
	)
	readyGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "promptstock_llm_ready",
			Help: "1 when a client of the mode holds a ready model context",
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(opsTotal, opDuration, readyGauge)
}

// observe records one finished operation. The outcome is "ok" or the error kind.
func observe(mode, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	opsTotal.WithLabelValues(mode, op, outcome).Inc()
	opDuration.WithLabelValues(mode, op).Observe(time.Since(start).Seconds())
}

func setReady(mode string, ready bool) {
	v := 0.0
	if ready {
		v = 1
	}
	readyGauge.WithLabelValues(mode).Set(v)
}
