package domain

type OutcomeResult string

const (
	OutcomeApplied OutcomeResult = "APPLIED"
	OutcomeSkipped OutcomeResult = "SKIPPED"
	OutcomeFailed  OutcomeResult = "FAILED"
)

// ActionOutcome records what happened to one scanned instance. Exactly one
// outcome is produced per distinct scanned id per invocation.
type ActionOutcome struct {
	InstanceID string
	Scope      Scope
	Result     OutcomeResult
	Reason     string
	Err        error
}

// InvocationSummary is the single record one sweep returns. It is built
// incrementally by the aggregator and frozen once the invocation ends.
// Only FAILED outcomes keep full detail; APPLIED and SKIPPED are tallied.
type InvocationSummary struct {
	Action        Action
	ScopesScanned int
	TotalScanned  int
	Applied       int
	Skipped       int
	Failed        []ActionOutcome
}

func (s *InvocationSummary) FailedCount() int {
	return len(s.Failed)
}
