// Package metrics exposes the runtime's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexd_turns_total",
		Help: "Completed runtime operations by operation and resulting dialog state",
	}, []string{"operation", "dialog_state"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexd_errors_total",
		Help: "Failed runtime operations by operation and error kind",
	}, []string{"operation", "kind"})

	contextsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexd_contexts_expired_total",
		Help: "Active contexts dropped by the expiry policy",
	})

	fulfillmentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexd_fulfillment_total",
		Help: "Fulfillment code hook calls by outcome",
	}, []string{"outcome"}) // outcome=fulfilled|failed|error

	catalogLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexd_catalog_loads_total",
		Help: "Bot definition loads from the catalog source by outcome",
	}, []string{"outcome"}) // outcome=success|failure
)

// RecordTurn counts one successful operation.
func RecordTurn(operation, dialogState string) {
	if dialogState == "" {
		dialogState = "none"
	}
	turnsTotal.WithLabelValues(operation, dialogState).Inc()
}

// RecordError counts one failed operation.
func RecordError(operation, kind string) {
	errorsTotal.WithLabelValues(operation, kind).Inc()
}

func RecordContextsExpired(n int) {
	if n <= 0 {
		return
	}
	contextsExpiredTotal.Add(float64(n))
}

func RecordFulfillment(outcome string) {
	switch outcome {
	case "fulfilled", "failed", "error":
	default:
		outcome = "unknown"
	}
	fulfillmentTotal.WithLabelValues(outcome).Inc()
}

func RecordCatalogLoad(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	catalogLoadsTotal.WithLabelValues(outcome).Inc()
}
