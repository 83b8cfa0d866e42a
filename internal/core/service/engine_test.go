package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/config"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	apperrors "github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/errors"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/mocks"
)

type fakeSource struct {
	scopes      []domain.Scope
	discoverErr error
	records     map[string][]domain.InstanceRecord
	scanErr     map[string]error
}

func (f *fakeSource) Type() string { return "fake" }

func (f *fakeSource) DiscoverScopes(ctx context.Context) ([]domain.Scope, error) {
	return f.scopes, f.discoverErr
}

func (f *fakeSource) Scan(ctx context.Context, scope domain.Scope, out chan<- domain.InstanceRecord) error {
	for _, record := range f.records[scope.Region] {
		select {
		case out <- record:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.scanErr[scope.Region]
}

type capturingReporter struct {
	summary *domain.InvocationSummary
}

func (r *capturingReporter) Report(ctx context.Context, summary *domain.InvocationSummary) error {
	r.summary = summary
	return nil
}

func engineConfig(action domain.Action) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Sweep.Action = action
	cfg.Sweep.BatchSize = 2
	cfg.Sweep.Concurrency = 2
	cfg.Sweep.DispatchDeadline = time.Minute
	return cfg
}

func newTestEngine(t *testing.T, source *fakeSource, executor *fakeExecutor, action domain.Action) (*SweepEngine, *capturingReporter) {
	t.Helper()
	reporter := &capturingReporter{}
	engine, err := NewSweepEngine(source, executor, reporter, mocks.NopLogger{}, engineConfig(action))
	require.NoError(t, err)
	return engine, reporter
}

func TestEngineStopsAllRunningInstances(t *testing.T) {
	scope := domain.Scope{Region: "us-east-1", AccountID: "123456789012"}
	// 5 running instances, as scanned across two provider pages (3 + 2).
	source := &fakeSource{
		scopes: []domain.Scope{scope},
		records: map[string][]domain.InstanceRecord{
			"us-east-1": testRecords(scope,
				"i-aaa11111111111111", "i-bbb22222222222222", "i-ccc33333333333333",
				"i-ddd44444444444444", "i-eee55555555555555"),
		},
	}
	executor := &fakeExecutor{
		respond: func(call int, action domain.Action, scope domain.Scope, ids []string) ([]domain.ActionOutcome, error) {
			return appliedOutcomes(scope, ids), nil
		},
	}
	engine, reporter := newTestEngine(t, source, executor, domain.ActionStop)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 5, summary.TotalScanned)
	assert.Equal(t, 5, summary.Applied)
	assert.Equal(t, 0, summary.Skipped)
	assert.Empty(t, summary.Failed)
	assert.Same(t, summary, reporter.summary)
}

func TestEngineSkipsConcurrentlyTerminatedInstance(t *testing.T) {
	scope := domain.Scope{Region: "us-east-1"}
	source := &fakeSource{
		scopes: []domain.Scope{scope},
		records: map[string][]domain.InstanceRecord{
			"us-east-1": testRecords(scope,
				"i-aaa11111111111111", "i-bbb22222222222222", "i-ccc33333333333333",
				"i-ddd44444444444444", "i-gone0000000000000"),
		},
	}
	executor := &fakeExecutor{
		respond: func(call int, action domain.Action, scope domain.Scope, ids []string) ([]domain.ActionOutcome, error) {
			outcomes := make([]domain.ActionOutcome, 0, len(ids))
			for _, id := range ids {
				if id == "i-gone0000000000000" {
					// Terminated by another actor between scan and dispatch.
					outcomes = append(outcomes, domain.ActionOutcome{InstanceID: id, Scope: scope, Result: domain.OutcomeSkipped, Reason: "instance no longer exists"})
					continue
				}
				outcomes = append(outcomes, domain.ActionOutcome{InstanceID: id, Scope: scope, Result: domain.OutcomeApplied})
			}
			return outcomes, nil
		},
	}
	engine, _ := newTestEngine(t, source, executor, domain.ActionStop)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, summary.TotalScanned)
	assert.Equal(t, 4, summary.Applied)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, summary.Failed)
}

func TestEngineDeduplicatesOverlappingPages(t *testing.T) {
	scope := domain.Scope{Region: "us-east-1"}
	duplicated := testRecords(scope, "i-aaa11111111111111", "i-bbb22222222222222")
	duplicated = append(duplicated, duplicated...)
	source := &fakeSource{
		scopes:  []domain.Scope{scope},
		records: map[string][]domain.InstanceRecord{"us-east-1": duplicated},
	}
	executor := &fakeExecutor{
		respond: func(call int, action domain.Action, scope domain.Scope, ids []string) ([]domain.ActionOutcome, error) {
			return appliedOutcomes(scope, ids), nil
		},
	}
	engine, _ := newTestEngine(t, source, executor, domain.ActionStop)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalScanned)
	assert.Equal(t, 2, summary.Applied)

	dispatched := 0
	for _, chunk := range executor.chunks {
		dispatched += len(chunk)
	}
	assert.Equal(t, 2, dispatched)
}

func TestEngineMergesScopesWithoutDuplicates(t *testing.T) {
	east := domain.Scope{Region: "us-east-1"}
	west := domain.Scope{Region: "us-west-2"}
	source := &fakeSource{
		scopes: []domain.Scope{east, west},
		records: map[string][]domain.InstanceRecord{
			"us-east-1": testRecords(east, "i-aaa11111111111111", "i-bbb22222222222222"),
			"us-west-2": testRecords(west, "i-ccc33333333333333"),
		},
	}
	executor := &fakeExecutor{
		respond: func(call int, action domain.Action, scope domain.Scope, ids []string) ([]domain.ActionOutcome, error) {
			return appliedOutcomes(scope, ids), nil
		},
	}
	engine, _ := newTestEngine(t, source, executor, domain.ActionTerminate)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ScopesScanned)
	assert.Equal(t, 3, summary.TotalScanned)
	assert.Equal(t, 3, summary.Applied)
}

func TestEngineFatalScanProducesNoSummary(t *testing.T) {
	scope := domain.Scope{Region: "us-east-1"}
	source := &fakeSource{
		scopes: []domain.Scope{scope},
		records: map[string][]domain.InstanceRecord{
			"us-east-1": testRecords(scope, "i-aaa11111111111111"),
		},
		scanErr: map[string]error{
			"us-east-1": apperrors.New(apperrors.CodePlatformAuthError, "UnauthorizedOperation"),
		},
	}
	executor := &fakeExecutor{
		respond: func(call int, action domain.Action, scope domain.Scope, ids []string) ([]domain.ActionOutcome, error) {
			return appliedOutcomes(scope, ids), nil
		},
	}
	engine, reporter := newTestEngine(t, source, executor, domain.ActionStop)

	summary, err := engine.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.True(t, apperrors.Is(err, apperrors.CodeScanIncomplete))

	// Nothing acted upon, nothing reported.
	assert.Zero(t, executor.callCount())
	assert.Nil(t, reporter.summary)
}

func TestEngineDiscoveryFailureAborts(t *testing.T) {
	source := &fakeSource{
		discoverErr: apperrors.New(apperrors.CodeScanIncomplete, "no AWS regions available to sweep"),
	}
	executor := &fakeExecutor{
		respond: func(call int, action domain.Action, scope domain.Scope, ids []string) ([]domain.ActionOutcome, error) {
			return appliedOutcomes(scope, ids), nil
		},
	}
	engine, _ := newTestEngine(t, source, executor, domain.ActionStop)

	summary, err := engine.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Zero(t, executor.callCount())
}

func TestEngineSkipsTransitionalRecordsWithoutDispatch(t *testing.T) {
	scope := domain.Scope{Region: "us-east-1"}
	records := testRecords(scope, "i-aaa11111111111111")
	records = append(records, domain.InstanceRecord{ID: "i-stp00000000000000", State: domain.StateStopping, Scope: scope})
	source := &fakeSource{
		scopes:  []domain.Scope{scope},
		records: map[string][]domain.InstanceRecord{"us-east-1": records},
	}
	executor := &fakeExecutor{
		respond: func(call int, action domain.Action, scope domain.Scope, ids []string) ([]domain.ActionOutcome, error) {
			return appliedOutcomes(scope, ids), nil
		},
	}
	engine, _ := newTestEngine(t, source, executor, domain.ActionStop)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalScanned)
	assert.Equal(t, 1, summary.Applied)
	assert.Equal(t, 1, summary.Skipped)
	for _, chunk := range executor.chunks {
		assert.NotContains(t, chunk, "i-stp00000000000000")
	}
}

func TestNewSweepEngineValidation(t *testing.T) {
	executor := &fakeExecutor{}
	reporter := &capturingReporter{}
	source := &fakeSource{}

	_, err := NewSweepEngine(nil, executor, reporter, mocks.NopLogger{}, engineConfig(domain.ActionStop))
	assert.Error(t, err)

	_, err = NewSweepEngine(source, nil, reporter, mocks.NopLogger{}, engineConfig(domain.ActionStop))
	assert.Error(t, err)

	_, err = NewSweepEngine(source, executor, nil, mocks.NopLogger{}, engineConfig(domain.ActionStop))
	assert.Error(t, err)

	cfg := engineConfig(domain.ActionStop)
	cfg.Sweep.Action = ""
	_, err = NewSweepEngine(source, executor, reporter, mocks.NopLogger{}, cfg)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigValidation))
}
