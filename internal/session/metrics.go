package session

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "discordws"

var (
	payloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "session",
		Name:      "payloads_total",
		Help:      "Inbound gateway payloads, by opcode.",
	}, []string{"op"})

	heartbeatsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "session",
		Name:      "heartbeats_total",
		Help:      "Heartbeats sent to the gateway.",
	})

	heartbeatRTT = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "session",
		Name:      "heartbeat_rtt_seconds",
		Help:      "Delay between the last heartbeat and its acknowledgement.",
	})

	reconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "session",
		Name:      "reconnects_total",
		Help:      "Times the runner re-established the gateway connection.",
	})
)

func observePayload(op int) {
	payloadsTotal.WithLabelValues(strconv.Itoa(op)).Inc()
}
