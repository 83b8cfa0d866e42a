package service

import (
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
)

type Decision int

const (
	DecisionSkip Decision = iota
	DecisionApply
)

// Decide is the pure action policy: no I/O, deterministic, testable without
// a provider. Both STOP and TERMINATE apply to any running instance; the
// catalog already excludes everything else, so this is a final guard against
// records caught mid-transition. Tag or protection-flag exclusions belong to
// scope configuration upstream, deliberately not here.
func Decide(record domain.InstanceRecord, action domain.Action) Decision {
	_ = action
	if record.State != domain.StateRunning {
		return DecisionSkip
	}
	return DecisionApply
}
