// Package metrics exposes plantline's Prometheus metrics.
//
// A Registry owns a private prometheus.Registry so tests and multiple
// servers never collide on the global default. It implements
// engine.Metrics and records HTTP requests for the API middleware; the API
// serves Gatherer() at /api/v1/metrics.
package metrics
