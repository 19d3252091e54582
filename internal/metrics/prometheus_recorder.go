package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	hookDuration  *prom.HistogramVec
	hookResults   *prom.CounterVec
	instances     prom.Gauge
	buildDuration *prom.HistogramVec
}

// NewPrometheusRecorder constructs and registers the multidocs metrics on reg.
// A nil registry gets a private one, which keeps tests isolated.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		hookDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "multidocs",
			Name:      "hook_duration_seconds",
			Help:      "Duration of lifecycle hook calls per plugin instance",
			Buckets:   prom.DefBuckets,
		}, []string{"hook", "instance"}),
		hookResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "multidocs",
			Name:      "hook_results_total",
			Help:      "Lifecycle hook call outcomes per plugin instance",
		}, []string{"hook", "instance", "result"}),
		instances: prom.NewGauge(prom.GaugeOpts{
			Namespace: "multidocs",
			Name:      "instances",
			Help:      "Number of plugin instances behind the aggregator",
		}),
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "multidocs",
			Name:      "build_duration_seconds",
			Help:      "Total build session duration",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
	}
	reg.MustRegister(pr.hookDuration, pr.hookResults, pr.instances, pr.buildDuration)
	return pr
}

func (p *PrometheusRecorder) ObserveHookDuration(hook, instance string, d time.Duration) {
	if p == nil || p.hookDuration == nil {
		return
	}
	p.hookDuration.WithLabelValues(hook, instance).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncHookResult(hook, instance string, result ResultLabel) {
	if p == nil || p.hookResults == nil {
		return
	}
	p.hookResults.WithLabelValues(hook, instance, string(result)).Inc()
}

func (p *PrometheusRecorder) SetInstances(n int) {
	if p == nil || p.instances == nil {
		return
	}
	p.instances.Set(float64(n))
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration, success bool) {
	if p == nil || p.buildDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.buildDuration.WithLabelValues(res).Observe(d.Seconds())
}
