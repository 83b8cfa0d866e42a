package text

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/ports"
)

const ReporterTypeText = "text"

type Config struct {
	NoColor bool `mapstructure:"no_color"`
}

type Reporter struct {
	config Config
	writer io.Writer
	logger ports.Logger
}

func NewReporter(cfg Config, logger ports.Logger) (*Reporter, error) {
	if cfg.NoColor || !isTerminal(os.Stdout) {
		color.NoColor = true
	}

	return &Reporter{
		config: cfg,
		writer: os.Stdout,
		logger: logger,
	}, nil
}

func isTerminal(f *os.File) bool {
	stat, _ := f.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func (r *Reporter) Report(ctx context.Context, summary *domain.InvocationSummary) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	tw := tabwriter.NewWriter(r.writer, 0, 8, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "EC2 Sweep Report (%s)\n", summary.Action)
	fmt.Fprintln(tw, "=====================")
	fmt.Fprintf(tw, "Scopes Scanned:\t%d\n", summary.ScopesScanned)
	fmt.Fprintf(tw, "Instances Scanned:\t%d\n", summary.TotalScanned)
	fmt.Fprintf(tw, "Applied:\t%s\n", green(summary.Applied))
	fmt.Fprintf(tw, "Skipped:\t%s\n", yellow(summary.Skipped))
	fmt.Fprintf(tw, "Failed:\t%s\n", red(summary.FailedCount()))

	if summary.FailedCount() == 0 {
		return nil
	}

	failed := append([]domain.ActionOutcome(nil), summary.Failed...)
	sort.SliceStable(failed, func(i, j int) bool {
		if failed[i].Scope.String() != failed[j].Scope.String() {
			return failed[i].Scope.String() < failed[j].Scope.String()
		}
		return failed[i].InstanceID < failed[j].InstanceID
	})

	fmt.Fprintln(tw, "\nFailures:")
	fmt.Fprintln(tw, "Instance\tScope\tReason\tDetail")
	fmt.Fprintln(tw, "--------\t-----\t------\t------")
	for _, outcome := range failed {
		detail := ""
		if outcome.Err != nil {
			detail = truncate(outcome.Err.Error(), 120)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", red(outcome.InstanceID), outcome.Scope, outcome.Reason, detail)
	}

	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}
