// Package metrics provides observability hooks for the tally counter.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics can stay disabled without nil checks:
//
//	counter := tally.New(ctx, store) // NoopRecorder
//
// To enable Prometheus, register a PrometheusRecorder on a registry and serve
// it with HTTPHandler:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	counter := tally.New(ctx, store, tally.WithRecorder(rec))
//	http.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
