// Package metrics exports the Prometheus series for reconciliation
// activity, following the promauto.NewCounterVec style used throughout
// the corpus's proxy-injector metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const labelTarget = "target"

var (
	// Connects counts transport Connect calls the reconciler issued.
	Connects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fabric_reconcile_connects_total",
		Help: "Number of transport connect operations issued by the reconciler.",
	}, []string{labelTarget})

	// Disconnects counts transport Disconnect calls the reconciler issued.
	Disconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fabric_reconcile_disconnects_total",
		Help: "Number of transport disconnect operations issued by the reconciler.",
	}, []string{labelTarget})

	// Relists counts LIST restarts (restartList calls) per target.
	Relists = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fabric_reconcile_relists_total",
		Help: "Number of LIST restarts issued by the reconciler.",
	}, []string{labelTarget})

	// ListEvents counts watch fires observed per target, regardless of
	// whether they triggered an immediate relist or were absorbed.
	ListEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fabric_reconcile_list_events_total",
		Help: "Number of LIST watch fires observed by the reconciler.",
	}, []string{labelTarget})

	// LiveConnections gauges the current peer count per target.
	LiveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fabric_live_connections",
		Help: "Current number of live transport connections per target.",
	}, []string{labelTarget})
)
