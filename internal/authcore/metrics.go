package authcore

import "sync"

// Auth event names recorded by the session manager.
const (
	MetricSignUpSuccess     = "auth.signup.success"
	MetricSignUpDuplicate   = "auth.signup.duplicate"
	MetricSignInSuccess     = "auth.signin.success"
	MetricSignInRejected    = "auth.signin.rejected"
	MetricSignOut           = "auth.signout"
	MetricRefreshSuccess    = "auth.refresh.success"
	MetricRefreshRejected   = "auth.refresh.rejected"
	MetricRefreshReplay     = "auth.refresh.replay"
	MetricAPIKeyIssued      = "auth.apikey.issued"
	MetricGuardUnauthorized = "guard.unauthorized"
	MetricGuardForbidden    = "guard.forbidden"
)

// MetricsRecorder increments counters for auth events.
type MetricsRecorder interface {
	Increment(event string)
}

// CounterMetrics implements MetricsRecorder with in-memory counts.
type CounterMetrics struct {
	mutex  sync.Mutex
	counts map[string]int64
}

// NewCounterMetrics constructs an in-memory metrics recorder.
func NewCounterMetrics() *CounterMetrics {
	return &CounterMetrics{counts: make(map[string]int64)}
}

// Increment increases the counter for the given event.
func (recorder *CounterMetrics) Increment(event string) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.counts[event]++
}

// Count returns the current value for the given event.
func (recorder *CounterMetrics) Count(event string) int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return recorder.counts[event]
}

// Snapshot returns a copy of all recorded counters.
func (recorder *CounterMetrics) Snapshot() map[string]int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	clone := make(map[string]int64, len(recorder.counts))
	for event, value := range recorder.counts {
		clone[event] = value
	}
	return clone
}

// NopMetrics is the no-op MetricsRecorder substituted for nil recorders.
type NopMetrics struct{}

// Increment discards the event.
func (NopMetrics) Increment(event string) {}
