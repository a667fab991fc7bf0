package alerting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ews"

var (
	alertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "created_total",
			Help:      "Alerts created by category, severity and origin",
		},
		[]string{"category", "severity", "origin"},
	)

	alertsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "closed_total",
			Help:      "Alerts resolved or cancelled",
		},
		[]string{"status"},
	)

	eventsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "evaluated_total",
			Help:      "Event records evaluated by outcome",
		},
		[]string{"result"},
	)
)
