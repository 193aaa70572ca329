// Package metrics holds Prometheus instruments that are used across
// docschema.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for ValidationsTotal.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
)

var (
	RegisteredTypes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docschema_registered_types",
			Help: "Number of record types in the active registry.",
		})

	ValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docschema_validations_total",
			Help: "Cumulative number of record validations by type and outcome.",
		}, []string{"type", "outcome"})

	FieldErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docschema_field_errors_total",
			Help: "Cumulative number of field-level validation errors.",
		}, []string{"type", "field"})

	DocumentsStoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docschema_documents_stored_total",
			Help: "Cumulative number of documents inserted per collection.",
		}, []string{"collection"})

	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docschema_store_errors_total",
			Help: "Cumulative number of failed store operations.",
		}, []string{"collection", "op"})
)

func init() {
	prometheus.MustRegister(
		RegisteredTypes,
		ValidationsTotal,
		FieldErrorsTotal,
		DocumentsStoredTotal,
		StoreErrorsTotal,
	)
}
