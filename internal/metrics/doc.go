// Package metrics collects request and health metrics for the load balancer.
//
// Producers emit MetricEvent values into a buffered channel; a single
// goroutine applies them to an in-memory store and to a private Prometheus
// registry. Emit never blocks: when the buffer is full the event is dropped.
//
// Two views are exposed:
//   - Handler serves a JSON Snapshot with per-server counts, response time
//     percentiles (P50, P95, P99) and status code distribution
//   - PrometheusHandler serves the same counters in the Prometheus text format
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Server:     "http://localhost:8081",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot("round-robin")
package metrics
