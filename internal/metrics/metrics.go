// Package metrics holds the Prometheus collectors for the storage,
// reconciliation, search and HTTP paths. Collectors are package-level so any
// component can record without plumbing; a registry is chosen by the caller.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var StoreOps = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "snippetbase",
	Subsystem: "store",
	Name:      "operations_total",
}, []string{"op", "result"})

var StoreFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "snippetbase",
	Subsystem: "store",
	Name:      "failures_total",
	Help:      "Storage failures swallowed at the store boundary.",
}, []string{"op"})

var LegacyMigrations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "snippetbase",
	Subsystem: "store",
	Name:      "legacy_migrations_total",
}, []string{"key", "result"})

var Reconciliations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "snippetbase",
	Subsystem: "collection",
	Name:      "reconciliations_total",
	Help:      "Reconciliation outcomes: seeded, unchanged, merged, skipped, discarded.",
}, []string{"domain", "outcome"})

var SeedLoadFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "snippetbase",
	Subsystem: "collection",
	Name:      "seed_load_failures_total",
}, []string{"domain"})

var Mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "snippetbase",
	Subsystem: "collection",
	Name:      "mutations_total",
}, []string{"domain", "op", "result"})

var CollectionSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "snippetbase",
	Subsystem: "collection",
	Name:      "entities",
}, []string{"domain"})

var IndexBuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "snippetbase",
	Subsystem: "search",
	Name:      "index_builds_total",
}, []string{"domain"})

var SearchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "snippetbase",
	Subsystem: "search",
	Name:      "query_duration_seconds",
	Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
}, []string{"domain"})

var HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "snippetbase",
	Subsystem: "http",
	Name:      "requests_total",
}, []string{"method", "route", "status"})

var HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "snippetbase",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// Collectors returns every collector in this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		StoreOps, StoreFailures, LegacyMigrations,
		Reconciliations, SeedLoadFailures, Mutations, CollectionSize,
		IndexBuilds, SearchDuration,
		HTTPRequests, HTTPDuration,
	}
}

// NewRegistry returns a registry with every collector registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(Collectors()...)
	return reg
}
