// Package metrics provides Prometheus metrics for scan attempts.
// Label values are bounded enums; payload text never becomes a label.
package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts finished scan attempts by origin and outcome.
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrdecryptor_scans_total",
		Help: "Total number of finished scan attempts, by origin and outcome (success/failure).",
	}, []string{"origin", "outcome"})

	// PayloadKindsTotal counts decoded payloads by classification.
	PayloadKindsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrdecryptor_payload_kinds_total",
		Help: "Total number of decoded payloads, by kind.",
	}, []string{"kind"})

	// AcquisitionErrorsTotal counts acquisitions that produced no buffer.
	AcquisitionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrdecryptor_acquisition_errors_total",
		Help: "Total number of failed image acquisitions, by origin and reason.",
	}, []string{"origin", "reason"})

	// DecodeDuration tracks decoder latency per attempt.
	DecodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qrdecryptor_decode_duration_seconds",
		Help:    "Time spent in the matrix decoder per attempt, by result (found/not_found).",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"result"})
)

// ObserveDecode records one decoder attempt
func ObserveDecode(elapsed time.Duration, found bool) {
	result := "not_found"
	if found {
		result = "found"
	}
	DecodeDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

// RecordScan records a finished attempt. kind is empty for failures.
func RecordScan(origin, outcome, kind string) {
	ScansTotal.WithLabelValues(origin, outcome).Inc()
	if kind != "" {
		PayloadKindsTotal.WithLabelValues(kind).Inc()
	}
}

// RecordAcquisitionError records an acquisition that never reached Scanning
func RecordAcquisitionError(origin, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	AcquisitionErrorsTotal.WithLabelValues(origin, reason).Inc()
}

// WriteTextfile dumps the default registry in text format for the
// node_exporter textfile collector. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		slog.Error("metrics_textfile_write_failed", "path", path, "error", err)
		return err
	}
	slog.Debug("metrics_textfile_written", "path", path)
	return nil
}
