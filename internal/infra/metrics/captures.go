package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		capturesTotal,
		captureDuration,
		captureRejections,
	)
}

var (
	capturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captures_total",
			Help: "Extraction invocations by outcome (success/failure).",
		},
		[]string{"outcome", "provider"},
	)

	captureDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "capture_inference_seconds",
			Help:    "Wall time of the vision inference call.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)

	captureRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_rejections_total",
			Help: "Requests refused at the admission gate, by reason.",
		},
		[]string{"reason"}, // not_found, blocked, not_entitled, rate_limited, invalid_payload
	)
)

func ObserveCapture(provider string, elapsedMs int64, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	capturesTotal.WithLabelValues(outcome, norm(provider)).Inc()
	captureDuration.Observe(float64(elapsedMs) / 1000)
}

func IncCaptureRejection(reason string) {
	captureRejections.WithLabelValues(norm(reason)).Inc()
}
