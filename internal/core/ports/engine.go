package ports

import (
	"context"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
)

//go:generate mockery --name SweepEngine --output ./mocks --outpkg mocks --case underscore
type SweepEngine interface {
	Run(ctx context.Context) (*domain.InvocationSummary, error)
}
