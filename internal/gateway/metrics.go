package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "discordws"

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "ws",
		Name:      "frames_total",
		Help:      "Data frames handled, by direction.",
	}, []string{"dir"})

	frameBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "ws",
		Name:      "bytes_total",
		Help:      "Data frame payload bytes, by direction.",
	}, []string{"dir"})

	decodeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "ws",
		Name:      "decode_failures_total",
		Help:      "Inbound frames whose payload did not inflate or parse.",
	}, []string{"reason"})

	dialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "ws",
		Name:      "dials_total",
		Help:      "Gateway handshake attempts, by outcome.",
	}, []string{"outcome"})

	dialDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "ws",
		Name:      "dial_duration_seconds",
		Help:      "Time spent establishing the gateway connection.",
		Buckets:   prometheus.DefBuckets,
	})
)

func observeFrame(dir string, bytes int) {
	framesTotal.WithLabelValues(dir).Inc()
	frameBytesTotal.WithLabelValues(dir).Add(float64(bytes))
}

func observeDial(d time.Duration, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	dialsTotal.WithLabelValues(outcome).Inc()
	dialDuration.Observe(d.Seconds())
}
