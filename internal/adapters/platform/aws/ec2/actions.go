package ec2

import (
	"context"
	"regexp"

	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	awserrors "github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/adapters/platform/aws/errors"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/adapters/platform/aws/shared"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/ports"
	apperrors "github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/errors"
)

var instanceIDPattern = regexp.MustCompile(`i-[0-9a-f]{8,17}`)

// Actions issues the batch stop/terminate call for one chunk of ids and
// settles exactly one outcome per id from the provider's per-id sub-results.
type Actions struct {
	client  EC2ClientInterface
	limiter shared.RateLimiter
}

func NewActions(client EC2ClientInterface, limiter shared.RateLimiter) *Actions {
	return &Actions{client: client, limiter: limiter}
}

// Execute runs one chunk. Ids the provider names in an
// InvalidInstanceID.NotFound error are settled as SKIPPED (already gone) and
// ids named in an IncorrectInstanceState error as FAILED, then the rest of
// the chunk is reissued so one bad id never poisons its siblings. Any other
// error covers the whole chunk and is returned classified for the caller's
// retry decision.
func (a *Actions) Execute(ctx context.Context, action domain.Action, scope domain.Scope, ids []string, logger ports.Logger) ([]domain.ActionOutcome, error) {
	settled := make(map[string]domain.ActionOutcome, len(ids))
	pending := append([]string(nil), ids...)

	for len(pending) > 0 {
		if err := a.limiter.Wait(ctx, logger); err != nil {
			return nil, err
		}

		changes, err := a.issue(ctx, action, pending)
		if err == nil {
			byID := make(map[string]ec2types.InstanceStateChange, len(changes))
			for _, change := range changes {
				if change.InstanceId != nil {
					byID[*change.InstanceId] = change
				}
			}
			for _, id := range pending {
				change, found := byID[id]
				if !found {
					// Absent from the response means the instance no longer
					// exists: the desired end state is already achieved.
					settled[id] = skippedOutcome(id, scope, "instance no longer exists")
					continue
				}
				settled[id] = outcomeFromStateChange(action, scope, id, change)
			}
			break
		}

		classified := awserrors.Classify("ec2", operationName(action), err, ctx)
		offending := namedInstanceIDs(err, pending)

		switch apperrors.GetCode(classified) {
		case apperrors.CodeResourceNotFound:
			if len(offending) == 0 {
				return nil, classified
			}
			for _, id := range offending {
				settled[id] = skippedOutcome(id, scope, "instance no longer exists")
			}
			pending = without(pending, offending)
			logger.Debugf(ctx, "Reissuing %s chunk without %d already-gone instance(s)", action, len(offending))

		case apperrors.CodeInvalidInstanceState:
			if len(offending) == 0 {
				return nil, classified
			}
			for _, id := range offending {
				settled[id] = domain.ActionOutcome{
					InstanceID: id,
					Scope:      scope,
					Result:     domain.OutcomeFailed,
					Reason:     apperrors.CodeInvalidInstanceState.String(),
					Err:        classified,
				}
			}
			pending = without(pending, offending)
			logger.Debugf(ctx, "Reissuing %s chunk without %d unactionable instance(s)", action, len(offending))

		default:
			return nil, classified
		}
	}

	outcomes := make([]domain.ActionOutcome, 0, len(ids))
	for _, id := range ids {
		outcomes = append(outcomes, settled[id])
	}
	return outcomes, nil
}

func (a *Actions) issue(ctx context.Context, action domain.Action, ids []string) ([]ec2types.InstanceStateChange, error) {
	switch action {
	case domain.ActionTerminate:
		resp, err := a.client.TerminateInstances(ctx, &awsec2.TerminateInstancesInput{InstanceIds: ids})
		if err != nil {
			return nil, err
		}
		return resp.TerminatingInstances, nil
	default:
		resp, err := a.client.StopInstances(ctx, &awsec2.StopInstancesInput{InstanceIds: ids})
		if err != nil {
			return nil, err
		}
		return resp.StoppingInstances, nil
	}
}

func operationName(action domain.Action) string {
	if action == domain.ActionTerminate {
		return "TerminateInstances"
	}
	return "StopInstances"
}

// outcomeFromStateChange maps one per-id sub-result. A previous state that
// already satisfies the action is an idempotent no-op (SKIPPED); a current
// state moving toward the target is APPLIED; anything else is FAILED.
func outcomeFromStateChange(action domain.Action, scope domain.Scope, id string, change ec2types.InstanceStateChange) domain.ActionOutcome {
	previous := mapInstanceState(change.PreviousState)
	current := mapInstanceState(change.CurrentState)

	if satisfiesAction(action, previous) {
		return skippedOutcome(id, scope, "already in target state")
	}
	if satisfiesAction(action, current) {
		return domain.ActionOutcome{InstanceID: id, Scope: scope, Result: domain.OutcomeApplied}
	}
	return domain.ActionOutcome{
		InstanceID: id,
		Scope:      scope,
		Result:     domain.OutcomeFailed,
		Reason:     apperrors.CodeInvalidInstanceState.String(),
		Err:        apperrors.New(apperrors.CodeInvalidInstanceState, "instance state unchanged by "+operationName(action)),
	}
}

func satisfiesAction(action domain.Action, state domain.InstanceState) bool {
	switch action {
	case domain.ActionTerminate:
		return state == domain.StateShuttingDown || state == domain.StateTerminated
	default:
		return state == domain.StateStopping || state == domain.StateStopped
	}
}

func skippedOutcome(id string, scope domain.Scope, reason string) domain.ActionOutcome {
	return domain.ActionOutcome{
		InstanceID: id,
		Scope:      scope,
		Result:     domain.OutcomeSkipped,
		Reason:     reason,
	}
}

// namedInstanceIDs pulls the instance ids an EC2 error message names,
// restricted to ids we actually sent in the chunk.
func namedInstanceIDs(err error, pending []string) []string {
	mentioned := instanceIDPattern.FindAllString(err.Error(), -1)
	if len(mentioned) == 0 {
		return nil
	}
	inChunk := make(map[string]struct{}, len(pending))
	for _, id := range pending {
		inChunk[id] = struct{}{}
	}
	seen := make(map[string]struct{}, len(mentioned))
	var offending []string
	for _, id := range mentioned {
		if _, ok := inChunk[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		offending = append(offending, id)
	}
	return offending
}

func without(ids []string, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	kept := ids[:0]
	for _, id := range ids {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}
	return kept
}
