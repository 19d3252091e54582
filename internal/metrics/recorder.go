package metrics

import "time"

// ResultLabel enumerates hook call outcomes for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	// ResultAbsent marks a LoadContent call that returned no content.
	ResultAbsent ResultLabel = "absent"
	// ResultSkipped marks an instance left out of a broadcast (no matching content).
	ResultSkipped ResultLabel = "skipped"
)

// Recorder defines observability hooks for aggregated plugin calls.
// Implementations must be safe for concurrent use; broadcasts record from
// several goroutines at once.
type Recorder interface {
	ObserveHookDuration(hook, instance string, d time.Duration)
	IncHookResult(hook, instance string, result ResultLabel)
	SetInstances(n int)
	ObserveBuildDuration(d time.Duration, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveHookDuration(string, string, time.Duration) {}
func (NoopRecorder) IncHookResult(string, string, ResultLabel)         {}
func (NoopRecorder) SetInstances(int)                                  {}
func (NoopRecorder) ObserveBuildDuration(time.Duration, bool)          {}
