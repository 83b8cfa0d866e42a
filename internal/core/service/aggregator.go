package service

import (
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
)

// SummaryBuilder accumulates outcomes into the invocation summary as a
// stream: counts for APPLIED and SKIPPED, full detail only for FAILED, so
// memory stays bounded against very large fleets. It is commutative over
// outcome order and written from a single goroutine; Build freezes it.
type SummaryBuilder struct {
	summary domain.InvocationSummary
	frozen  bool
}

func NewSummaryBuilder(action domain.Action, scopesScanned int) *SummaryBuilder {
	return &SummaryBuilder{
		summary: domain.InvocationSummary{
			Action:        action,
			ScopesScanned: scopesScanned,
		},
	}
}

func (b *SummaryBuilder) Add(outcome domain.ActionOutcome) {
	if b.frozen {
		return
	}
	b.summary.TotalScanned++
	switch outcome.Result {
	case domain.OutcomeApplied:
		b.summary.Applied++
	case domain.OutcomeSkipped:
		b.summary.Skipped++
	case domain.OutcomeFailed:
		b.summary.Failed = append(b.summary.Failed, outcome)
	}
}

// Build freezes the accumulator and returns the summary. Produced exactly
// once per invocation; later Add calls are ignored.
func (b *SummaryBuilder) Build() *domain.InvocationSummary {
	b.frozen = true
	return &b.summary
}
