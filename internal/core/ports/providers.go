package ports

import (
	"context"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
)

// InstanceSource enumerates the scopes a sweep covers and streams the
// running instances inside each one. Scan sends every RUNNING instance in
// the scope to out, following the provider's continuation-token pagination
// to the end. An error from Scan means the scope was not fully covered and
// the invocation must not act on anything.
type InstanceSource interface {
	Type() string
	DiscoverScopes(ctx context.Context) ([]domain.Scope, error)
	Scan(ctx context.Context, scope domain.Scope, out chan<- domain.InstanceRecord) error
}

// ActionExecutor issues one provider batch call for one chunk of ids within
// a single scope. On success it returns exactly one outcome per id, mapping
// the provider's per-id sub-results (already-in-target-state and
// already-gone ids come back SKIPPED, not as errors). A returned error
// covers the whole chunk and carries a classified code so the dispatcher
// can decide whether to retry.
type ActionExecutor interface {
	Execute(ctx context.Context, action domain.Action, scope domain.Scope, ids []string) ([]domain.ActionOutcome, error)
}
