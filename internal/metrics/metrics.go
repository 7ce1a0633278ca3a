// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "scans_total",
		Help:      "Scan attempts by terminal outcome.",
	}, []string{"outcome"})

	scanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "scan_duration_seconds",
		Help:      "Time spent deciding a scan attempt.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})

	tallied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "tallied_events_total",
		Help:      "Check-in messages applied to the live tally by the worker.",
	})

	qrIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "qr_codes_issued_total",
		Help:      "QR codes generated for teachers.",
	})
)

// ObserveScan records one scan decision.
func ObserveScan(outcome string, took time.Duration) {
	scans.WithLabelValues(outcome).Inc()
	scanDuration.WithLabelValues(outcome).Observe(took.Seconds())
}

// Tallied counts a worker tally update.
func Tallied() { tallied.Inc() }

// QRIssued counts a generated QR code.
func QRIssued() { qrIssued.Inc() }
