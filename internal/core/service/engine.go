package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/config"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/ports"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/errors"
)

// SweepEngine runs one invocation end to end: discover scopes, scan them
// concurrently, filter through the action policy, dispatch the action, and
// aggregate the outcomes into the invocation summary. The scan completes
// fully before dispatch begins; a scan failure means nothing is acted upon.
type SweepEngine struct {
	source     ports.InstanceSource
	dispatcher *Dispatcher
	reporter   ports.Reporter
	logger     ports.Logger
	action     domain.Action
}

func NewSweepEngine(
	source ports.InstanceSource,
	executor ports.ActionExecutor,
	reporter ports.Reporter,
	logger ports.Logger,
	cfg *config.Config,
	opts ...DispatcherOption,
) (*SweepEngine, error) {
	if source == nil {
		return nil, errors.New(errors.CodeConfigValidation, "instance source cannot be nil")
	}
	if executor == nil {
		return nil, errors.New(errors.CodeConfigValidation, "action executor cannot be nil")
	}
	if reporter == nil {
		return nil, errors.New(errors.CodeConfigValidation, "reporter cannot be nil")
	}
	if cfg.Sweep.Action != domain.ActionStop && cfg.Sweep.Action != domain.ActionTerminate {
		return nil, errors.NewUserFacing(errors.CodeConfigValidation,
			"sweep action must be STOP or TERMINATE",
			"Set sweep.action (or --action) explicitly; there is no default.")
	}

	return &SweepEngine{
		source:     source,
		dispatcher: NewDispatcher(executor, logger, cfg.Sweep, opts...),
		reporter:   reporter,
		logger:     logger,
		action:     cfg.Sweep.Action,
	}, nil
}

func (e *SweepEngine) Run(ctx context.Context) (*domain.InvocationSummary, error) {
	e.logger.Infof(ctx, "Starting %s sweep using %s provider", e.action, e.source.Type())

	scopes, err := e.source.DiscoverScopes(ctx)
	if err != nil {
		return nil, err
	}

	records, err := e.scanAll(ctx, scopes)
	if err != nil {
		// Fatal: an incomplete scan cannot be trusted, so no partial summary.
		return nil, err
	}
	e.logger.Infof(ctx, "Scan complete: %d running instance(s) across %d scope(s)", len(records), len(scopes))

	builder := NewSummaryBuilder(e.action, len(scopes))
	applicable := make([]domain.InstanceRecord, 0, len(records))
	for _, record := range records {
		if Decide(record, e.action) == DecisionApply {
			applicable = append(applicable, record)
			continue
		}
		builder.Add(domain.ActionOutcome{
			InstanceID: record.ID,
			Scope:      record.Scope,
			Result:     domain.OutcomeSkipped,
			Reason:     "not actionable at dispatch time",
		})
	}

	for _, outcome := range e.dispatcher.Dispatch(ctx, e.action, applicable) {
		builder.Add(outcome)
	}

	summary := builder.Build()
	e.logger.Infof(ctx, "Sweep finished: scanned=%d applied=%d skipped=%d failed=%d",
		summary.TotalScanned, summary.Applied, summary.Skipped, summary.FailedCount())

	if reportErr := e.reporter.Report(ctx, summary); reportErr != nil {
		return summary, errors.Wrap(reportErr, errors.CodeInternal, "failed to render invocation summary")
	}
	return summary, nil
}

// scanAll runs the per-scope scans concurrently (pagination within a scope
// is inherently sequential) and de-duplicates by instance id, so the outcome
// set is exactly the set of distinct scanned ids.
func (e *SweepEngine) scanAll(ctx context.Context, scopes []domain.Scope) ([]domain.InstanceRecord, error) {
	recordChan := make(chan domain.InstanceRecord, 100)
	g, childCtx := errgroup.WithContext(ctx)

	for _, scope := range scopes {
		currentScope := scope
		g.Go(func() error {
			return e.source.Scan(childCtx, currentScope, recordChan)
		})
	}

	var records []domain.InstanceRecord
	seen := make(map[string]struct{})
	collectDone := make(chan struct{})
	go func() {
		defer close(collectDone)
		for record := range recordChan {
			if _, dup := seen[record.ID]; dup {
				continue
			}
			seen[record.ID] = struct{}{}
			records = append(records, record)
		}
	}()

	scanErr := g.Wait()
	close(recordChan)
	<-collectDone

	if scanErr != nil {
		if scanErr == context.Canceled || scanErr == context.DeadlineExceeded {
			e.logger.Warnf(ctx, "Instance scan cancelled or timed out: %v", scanErr)
			return nil, scanErr
		}
		e.logger.Errorf(ctx, scanErr, "instance scan did not cover the full scope")
		if errors.Is(scanErr, errors.CodeScanIncomplete) {
			return nil, scanErr
		}
		fatal := errors.New(errors.CodeScanIncomplete, "instance scan failed before covering every scope")
		fatal.WrappedError = scanErr
		return nil, fatal
	}
	return records, nil
}
