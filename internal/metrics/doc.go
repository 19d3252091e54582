// Package metrics records per-instance lifecycle hook metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics never require nil checks at call sites:
//
//	agg, err := multidocs.New(lc, configs, factory,
//		multidocs.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// HTTPHandler exposes a registry for scraping (used by the watch command).
package metrics
