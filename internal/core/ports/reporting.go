package ports

import (
	"context"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
)

type Reporter interface {
	Report(ctx context.Context, summary *domain.InvocationSummary) error
}
