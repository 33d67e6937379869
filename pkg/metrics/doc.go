// Package metrics provides Prometheus instrumentation for byteflow components.
//
// # Overview
//
// The metrics package instruments:
//   - Writers (Append calls, direct writes, bytes, flushes per level, failures, position)
//   - Buffers (cord conversions by mode, bytes copied during conversion)
//   - Flushers (scheduled runs and failed runs)
//
// # Quick Start
//
// Attach a registry through the writer configuration:
//
//	reg := metrics.NewRegistry(prometheus.NewRegistry())
//
//	cfg := writer.DefaultConfig()
//	cfg.Metrics = reg
//	cfg.MetricsName = "records"
//	w := writer.New(dest, cfg)
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// NewRegistry registers every collector with the given registerer, so call it
// once per registerer. Components share a Registry by pointer. DefaultRegistry
// is registered with prometheus.DefaultRegisterer at init.
//
// # Metric Names
//
//	byteflow_writer_appends_total{writer_name}
//	byteflow_writer_direct_writes_total{writer_name}
//	byteflow_writer_bytes_written_total{writer_name}
//	byteflow_writer_flushes_total{writer_name,level}
//	byteflow_writer_failures_total{writer_name,operation}
//	byteflow_writer_position_bytes{writer_name}
//	byteflow_buffer_conversions_total{mode}
//	byteflow_buffer_copied_bytes_total
//	byteflow_flusher_runs_total{flusher_name}
//	byteflow_flusher_errors_total{flusher_name}
package metrics
