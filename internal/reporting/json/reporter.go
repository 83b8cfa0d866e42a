package json

import (
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/ports"
)

const ReporterTypeJSON = "json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct{}

type Reporter struct {
	config Config
	writer io.Writer
	logger ports.Logger
}

func NewReporter(cfg Config, logger ports.Logger) (*Reporter, error) {
	return &Reporter{
		config: cfg,
		writer: os.Stdout,
		logger: logger,
	}, nil
}

type jsonReport struct {
	Action        domain.Action `json:"action"`
	ScopesScanned int           `json:"scopes_scanned"`
	TotalScanned  int           `json:"total_scanned"`
	Applied       int           `json:"applied"`
	Skipped       int           `json:"skipped"`
	Failed        []jsonFailure `json:"failed"`
}

type jsonFailure struct {
	InstanceID string `json:"instance_id"`
	Scope      string `json:"scope"`
	Reason     string `json:"reason"`
	Error      string `json:"error,omitempty"`
}

func (r *Reporter) Report(ctx context.Context, summary *domain.InvocationSummary) error {
	if ctx.Err() != nil {
		r.logger.Warnf(ctx, "JSON report generation cancelled.")
		return ctx.Err()
	}

	report := jsonReport{
		Action:        summary.Action,
		ScopesScanned: summary.ScopesScanned,
		TotalScanned:  summary.TotalScanned,
		Applied:       summary.Applied,
		Skipped:       summary.Skipped,
		Failed:        make([]jsonFailure, 0, summary.FailedCount()),
	}

	for _, outcome := range summary.Failed {
		failure := jsonFailure{
			InstanceID: outcome.InstanceID,
			Scope:      outcome.Scope.String(),
			Reason:     outcome.Reason,
		}
		if outcome.Err != nil {
			failure.Error = outcome.Err.Error()
		}
		report.Failed = append(report.Failed, failure)
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(report); err != nil {
		r.logger.Errorf(ctx, err, "Failed to encode JSON report")
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}

	r.logger.Debugf(ctx, "JSON report successfully generated.")
	return nil
}
