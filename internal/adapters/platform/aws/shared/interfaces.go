package shared

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/ports"
)

//go:generate mockery --name RateLimiter --output ./mocks --outpkg mocks --case underscore
//go:generate mockery --name STSClientInterface --output ./mocks --outpkg mocks --case underscore

// RateLimiter throttles outbound AWS API calls. One limiter instance is
// shared by every client the provider hands out.
type RateLimiter interface {
	// Wait blocks until the rate limit allows proceeding, or returns an error.
	Wait(ctx context.Context, logger ports.Logger) error
}

// STSClientInterface defines the method needed from the AWS SDK STS client.
type STSClientInterface interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}
