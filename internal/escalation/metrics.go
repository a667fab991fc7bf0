package escalation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var escalationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ews",
		Subsystem: "escalation",
		Name:      "escalations_total",
		Help:      "Alerts escalated by category and resulting severity",
	},
	[]string{"category", "severity"},
)
