package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ews"

var (
	dispatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "dispatches_total",
			Help:      "Total alert dispatches across all channels",
		},
	)

	channelSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "channel_sends_total",
			Help:      "Channel sends by outcome",
		},
		[]string{"channel", "status"},
	)

	channelSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "send_duration_seconds",
			Help:      "Time spent in a channel send",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)
)

func recordSend(channel string, ok bool, d time.Duration) {
	status := "success"
	if !ok {
		status = "failed"
	}
	channelSends.WithLabelValues(channel, status).Inc()
	channelSendDuration.WithLabelValues(channel).Observe(d.Seconds())
}
