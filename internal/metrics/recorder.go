package metrics

import "time"

// OutcomeLabel enumerates persistence outcomes for duration histograms.
type OutcomeLabel string

const (
	OutcomeSuccess OutcomeLabel = "success"
	OutcomeFailed  OutcomeLabel = "failed"
)

// Recorder defines observability hooks for counter operations. Implementations
// may forward to Prometheus or any other backend. All methods must tolerate a
// nil receiver so recorders can be injected optionally.
type Recorder interface {
	IncOperation(op string)
	IncCompletion()
	SetState(count, round, total int)
	IncPersistFailure(backend string)
	ObservePersistDuration(backend string, d time.Duration, outcome OutcomeLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncOperation(string)                                        {}
func (NoopRecorder) IncCompletion()                                             {}
func (NoopRecorder) SetState(int, int, int)                                     {}
func (NoopRecorder) IncPersistFailure(string)                                   {}
func (NoopRecorder) ObservePersistDuration(string, time.Duration, OutcomeLabel) {}
