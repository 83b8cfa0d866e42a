package app

import (
	"context"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/ports"
)

// Application ties the sweep engine to its logger for one invocation.
type Application struct {
	Engine ports.SweepEngine
	Logger ports.Logger
}

func NewApplication(engine ports.SweepEngine, logger ports.Logger) *Application {
	return &Application{
		Engine: engine,
		Logger: logger,
	}
}

// Run executes one sweep. A returned summary means the invocation
// completed, even when individual instances failed; only a fatal scan
// failure yields a nil summary.
func (a *Application) Run(ctx context.Context) (*domain.InvocationSummary, error) {
	a.Logger.Infof(ctx, "Starting EC2 sweep...")

	summary, err := a.Engine.Run(ctx)
	if err != nil && summary == nil {
		a.Logger.Errorf(ctx, err, "EC2 sweep failed")
		return nil, err
	}

	a.Logger.WithFields(map[string]any{
		"action":  summary.Action.String(),
		"scopes":  summary.ScopesScanned,
		"scanned": summary.TotalScanned,
		"applied": summary.Applied,
		"skipped": summary.Skipped,
		"failed":  summary.FailedCount(),
	}).Infof(ctx, "EC2 sweep completed")
	return summary, err
}
