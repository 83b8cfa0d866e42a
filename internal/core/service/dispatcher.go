package service

import (
	"context"
	"sync"
	"time"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/config"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/ports"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/errors"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/retry"
)

// chunk is one provider batch call's worth of ids, all within one scope.
type chunk struct {
	scope domain.Scope
	ids   []string
}

// Dispatcher executes the configured action over the filtered instance set:
// ids are partitioned into chunks no larger than the provider batch limit,
// chunks run on a fixed worker pool, transient chunk failures are retried
// under bounded backoff, and a hard dispatch deadline gates the start of new
// chunks without aborting calls already in flight. Every id comes back with
// exactly one outcome; one chunk's failure never aborts the others.
type Dispatcher struct {
	executor    ports.ActionExecutor
	logger      ports.Logger
	batchSize   int
	concurrency int
	deadline    time.Duration
	retry       retry.Policy
	sleep       retry.Sleeper
	gate        <-chan struct{}
}

type DispatcherOption func(*Dispatcher)

// WithSleeper replaces the backoff clock, for tests.
func WithSleeper(sleep retry.Sleeper) DispatcherOption {
	return func(d *Dispatcher) { d.sleep = sleep }
}

// WithDeadlineGate replaces the timer-driven gate: once the channel is
// closed, no new chunk starts.
func WithDeadlineGate(gate <-chan struct{}) DispatcherOption {
	return func(d *Dispatcher) { d.gate = gate }
}

func NewDispatcher(executor ports.ActionExecutor, logger ports.Logger, cfg config.SweepConfig, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		executor:    executor,
		logger:      logger,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		deadline:    cfg.DispatchDeadline,
		retry: retry.Policy{
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			MaxAttempts: cfg.Retry.MaxAttempts,
		},
		sleep: retry.SleepContext,
	}
	if d.batchSize < 1 {
		d.batchSize = 50
	}
	if d.concurrency < 1 {
		d.concurrency = 4
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs the whole filtered set and returns one outcome per record.
// Outcomes complete in arbitrary order; callers must not depend on it.
func (d *Dispatcher) Dispatch(ctx context.Context, action domain.Action, records []domain.InstanceRecord) []domain.ActionOutcome {
	if len(records) == 0 {
		return nil
	}

	chunks := d.buildChunks(records)
	gate := d.gate
	if gate == nil {
		timed := make(chan struct{})
		timer := time.AfterFunc(d.deadline, func() { close(timed) })
		defer timer.Stop()
		gate = timed
	}

	chunkChan := make(chan chunk)
	outcomeChan := make(chan domain.ActionOutcome, len(records))

	var wg sync.WaitGroup
	for i := 0; i < d.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.worker(ctx, action, gate, chunkChan, outcomeChan)
		}()
	}

	go func() {
		defer close(chunkChan)
		for _, c := range chunks {
			chunkChan <- c
		}
	}()

	go func() {
		wg.Wait()
		close(outcomeChan)
	}()

	outcomes := make([]domain.ActionOutcome, 0, len(records))
	for outcome := range outcomeChan {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// buildChunks partitions the record set by scope, then slices each scope's
// ids to the provider batch limit, preserving scan order within a scope.
func (d *Dispatcher) buildChunks(records []domain.InstanceRecord) []chunk {
	idsByScope := make(map[domain.Scope][]string)
	var scopeOrder []domain.Scope
	for _, record := range records {
		if _, seen := idsByScope[record.Scope]; !seen {
			scopeOrder = append(scopeOrder, record.Scope)
		}
		idsByScope[record.Scope] = append(idsByScope[record.Scope], record.ID)
	}

	var chunks []chunk
	for _, scope := range scopeOrder {
		ids := idsByScope[scope]
		for start := 0; start < len(ids); start += d.batchSize {
			end := start + d.batchSize
			if end > len(ids) {
				end = len(ids)
			}
			chunks = append(chunks, chunk{scope: scope, ids: ids[start:end]})
		}
	}
	return chunks
}

func (d *Dispatcher) worker(ctx context.Context, action domain.Action, gate <-chan struct{}, chunkChan <-chan chunk, outcomeChan chan<- domain.ActionOutcome) {
	for c := range chunkChan {
		// The gate stops new chunks; calls already in flight run to
		// completion so an action is never abandoned mid-provider-call.
		expired := false
		select {
		case <-gate:
			expired = true
		case <-ctx.Done():
			expired = true
		default:
		}

		var outcomes []domain.ActionOutcome
		if expired {
			reason := errors.CodeDeadlineExceeded
			err := ctx.Err()
			if err == nil {
				err = context.DeadlineExceeded
			}
			outcomes = d.failChunk(c, reason, err)
			d.logger.Warnf(ctx, "Dispatch deadline reached, %d instance(s) in %s not acted upon", len(c.ids), c.scope)
		} else {
			outcomes = d.executeChunk(ctx, action, c)
		}

		for _, outcome := range outcomes {
			outcomeChan <- outcome
		}
	}
}

// executeChunk issues one chunk with bounded retry. Only transient codes are
// retried; exhaustion or a non-retryable error degrades to marking every id
// in the chunk FAILED with the last error, never aborting sibling chunks.
func (d *Dispatcher) executeChunk(ctx context.Context, action domain.Action, c chunk) []domain.ActionOutcome {
	var lastErr error
	for attempt := 1; attempt <= d.retry.MaxAttempts; attempt++ {
		outcomes, err := d.executor.Execute(ctx, action, c.scope, c.ids)
		if err == nil {
			return d.normalizeChunkOutcomes(c, outcomes)
		}
		lastErr = err

		if !errors.GetCode(err).Retryable() {
			d.logger.Errorf(ctx, err, "Chunk of %d instance(s) in %s failed with non-retryable error", len(c.ids), c.scope)
			break
		}
		if attempt < d.retry.MaxAttempts {
			delay := d.retry.Delay(attempt)
			d.logger.Warnf(ctx, "Transient error on chunk in %s (attempt %d/%d), backing off %s", c.scope, attempt, d.retry.MaxAttempts, delay)
			if sleepErr := d.sleep(ctx, delay); sleepErr != nil {
				lastErr = sleepErr
				break
			}
		} else {
			d.logger.Errorf(ctx, err, "Retries exhausted for chunk of %d instance(s) in %s", len(c.ids), c.scope)
		}
	}
	return d.failChunk(c, errors.GetCode(lastErr), lastErr)
}

// normalizeChunkOutcomes enforces the one-outcome-per-id contract even if
// the executor misbehaves: extra ids are dropped, missing ids fail.
func (d *Dispatcher) normalizeChunkOutcomes(c chunk, outcomes []domain.ActionOutcome) []domain.ActionOutcome {
	byID := make(map[string]domain.ActionOutcome, len(outcomes))
	for _, outcome := range outcomes {
		byID[outcome.InstanceID] = outcome
	}
	normalized := make([]domain.ActionOutcome, 0, len(c.ids))
	for _, id := range c.ids {
		if outcome, found := byID[id]; found {
			normalized = append(normalized, outcome)
			continue
		}
		normalized = append(normalized, domain.ActionOutcome{
			InstanceID: id,
			Scope:      c.scope,
			Result:     domain.OutcomeFailed,
			Reason:     errors.CodeInternal.String(),
			Err:        errors.New(errors.CodeInternal, "executor returned no outcome for instance "+id),
		})
	}
	return normalized
}

func (d *Dispatcher) failChunk(c chunk, reason errors.Code, err error) []domain.ActionOutcome {
	outcomes := make([]domain.ActionOutcome, 0, len(c.ids))
	for _, id := range c.ids {
		outcomes = append(outcomes, domain.ActionOutcome{
			InstanceID: id,
			Scope:      c.scope,
			Result:     domain.OutcomeFailed,
			Reason:     reason.String(),
			Err:        err,
		})
	}
	return outcomes
}
