// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records session resolution outcomes.
type Metrics struct {
	resolutions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates and registers resolution metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accountd_resolutions_total",
			Help: "Total number of session resolutions by operation, identity and outcome",
		}, []string{"operation", "identity", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "accountd_resolution_duration_seconds",
			Help:    "Histogram of session resolution latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(m.resolutions, m.duration)

	return m
}

// observe is safe to call on a nil *Metrics.
func (m *Metrics) observe(operation, identity string, err error, started time.Time) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		kind, _ := Classify(err)
		outcome = string(kind)
	}
	m.resolutions.WithLabelValues(operation, identity, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
