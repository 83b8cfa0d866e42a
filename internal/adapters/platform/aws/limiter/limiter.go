package limiter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/ports"
)

const (
	defaultRateLimitRPS = 20
	minRateLimitRPS     = 1
	maxRateLimitRPS     = 100
)

// Limiter is a token-bucket limiter shared by every AWS client in one
// invocation. It implements shared.RateLimiter.
type Limiter struct {
	limiter *rate.Limiter
}

func New(rps int, logger ports.Logger) *Limiter {
	limitValue := defaultRateLimitRPS
	if rps >= minRateLimitRPS && rps <= maxRateLimitRPS {
		limitValue = rps
	} else if rps != 0 {
		logger.Warnf(context.Background(), "Invalid AWS API RPS configured (%d), using default %d RPS. Valid range: %d-%d.", rps, defaultRateLimitRPS, minRateLimitRPS, maxRateLimitRPS)
	}
	logger.Debugf(context.Background(), "AWS API rate limiter initialized: %d RPS", limitValue)
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(limitValue), limitValue)}
}

func (l *Limiter) Wait(ctx context.Context, logger ports.Logger) error {
	err := l.limiter.Wait(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warnf(ctx, "Error waiting for AWS API rate limiter: %v", err)
		}
		return err
	}
	return nil
}
