package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ews"

var (
	unitDegraded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "unit_degraded",
			Help:      "1 while a supervised unit is failing or waiting to restart",
		},
		[]string{"unit"},
	)

	unitRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "unit_restarts_total",
			Help:      "Supervised unit restarts after a fault",
		},
		[]string{"unit"},
	)

	recordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sources",
			Name:      "records_fetched_total",
			Help:      "Event records fetched per source",
		},
		[]string{"source"},
	)

	pollErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sources",
			Name:      "poll_errors_total",
			Help:      "Failed polls per source",
		},
		[]string{"source"},
	)

	snapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshots",
			Name:      "taken_total",
			Help:      "Registry snapshots by outcome",
		},
		[]string{"status"},
	)
)
