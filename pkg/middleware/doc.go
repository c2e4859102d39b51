// Package middleware instruments navigation with Prometheus metrics and
// OpenTelemetry tracing.
//
// Both wrap a router.Pusher, so they compose with router.IgnoreDuplicates:
//
//	m := middleware.NewMetrics(middleware.WithNamespace("console"))
//	push := router.IgnoreDuplicates(
//	    m.Pusher(middleware.Trace(nav)),
//	)
//
// Metrics sit inside IgnoreDuplicates so suppressed duplicate navigations
// are still counted.
//
// # Prometheus Metrics
//
// Exported series (namespace "consoleroutes" by default):
//   - navigations_total{op, route, result}
//   - navigation_duration_seconds{op}
//   - route_records
//   - table_resets_total
//   - websocket_connections
//   - websocket_errors_total{type}
//
// # OpenTelemetry
//
// Trace starts one span per navigation from the global tracer provider
// unless WithTracerProvider is given.
package middleware
