package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	awserrors "github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/adapters/platform/aws/errors"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/adapters/platform/aws/shared"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/ports"
	apperrors "github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/errors"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/retry"
)

const instanceStateFilterName = "instance-state-name"

// Catalog streams the running instances of one region by following the
// DescribeInstances continuation-token pagination to the end. A page that
// fails with a throttling error is retried under the configured backoff;
// any other page failure is fatal, because a partial scan cannot be trusted.
type Catalog struct {
	client   EC2ClientInterface
	limiter  shared.RateLimiter
	paginate PaginatorFactory
	pageSize int32
	retry    retry.Policy
	sleep    retry.Sleeper
}

type CatalogOption func(*Catalog)

func WithPaginatorFactory(factory PaginatorFactory) CatalogOption {
	return func(c *Catalog) { c.paginate = factory }
}

func WithCatalogSleeper(sleep retry.Sleeper) CatalogOption {
	return func(c *Catalog) { c.sleep = sleep }
}

func NewCatalog(client EC2ClientInterface, limiter shared.RateLimiter, pageSize int32, policy retry.Policy, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		client:   client,
		limiter:  limiter,
		paginate: defaultPaginatorFactory,
		pageSize: pageSize,
		retry:    policy,
		sleep:    retry.SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Scan sends every RUNNING instance in the scope to out. The provider is
// asked to filter server-side, and each record is re-checked client-side so
// instances caught mid-transition between pages (pending, stopping) are
// never yielded.
func (c *Catalog) Scan(ctx context.Context, scope domain.Scope, logger ports.Logger, out chan<- domain.InstanceRecord) error {
	input := &awsec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{{
			Name:   aws.String(instanceStateFilterName),
			Values: []string{string(ec2types.InstanceStateNameRunning)},
		}},
	}
	if c.pageSize > 0 {
		input.MaxResults = aws.Int32(c.pageSize)
	}
	paginator := c.paginate(c.client, input)

	pageNum := 0
	instanceCount := 0
	for paginator.HasMorePages() {
		if ctx.Err() != nil {
			logger.Warnf(ctx, "Context cancelled during EC2 instance pagination")
			return ctx.Err()
		}

		pageNum++
		output, err := c.nextPage(ctx, paginator, pageNum, logger)
		if err != nil {
			return err
		}

		for _, reservation := range output.Reservations {
			for _, instance := range reservation.Instances {
				record, mapErr := MapInstanceToRecord(instance, scope)
				if mapErr != nil {
					logger.Errorf(ctx, mapErr, "Failed to map EC2 instance, skipping")
					continue
				}
				if record.State != domain.StateRunning {
					logger.Debugf(ctx, "Excluding instance %s in transitional state %s", record.ID, record.State)
					continue
				}

				select {
				case out <- record:
					instanceCount++
				case <-ctx.Done():
					logger.Warnf(ctx, "Context cancelled while sending EC2 instance %s to channel", record.ID)
					return ctx.Err()
				}
			}
		}
	}
	logger.Debugf(ctx, "Finished paginating EC2 instances in %s: %d running across %d pages", scope, instanceCount, pageNum)
	return nil
}

// nextPage fetches one page, retrying throttled requests. The paginator only
// advances its token on success, so re-invoking NextPage retries the same page.
func (c *Catalog) nextPage(ctx context.Context, paginator EC2InstancesPaginator, pageNum int, logger ports.Logger) (*awsec2.DescribeInstancesOutput, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx, logger); err != nil {
			return nil, err
		}

		output, err := paginator.NextPage(ctx)
		if err == nil {
			return output, nil
		}

		classified := awserrors.Classify("ec2", "DescribeInstances", err, ctx)
		if !apperrors.GetCode(classified).Retryable() {
			return nil, classified
		}

		lastErr = classified
		if attempt < c.retry.MaxAttempts {
			delay := c.retry.Delay(attempt)
			logger.Warnf(ctx, "Throttled fetching EC2 instances page %d (attempt %d/%d), backing off %s", pageNum, attempt, c.retry.MaxAttempts, delay)
			if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}
	// Retries exhausted at the scan layer escalate to a fatal scan error:
	// an incomplete scan is meaningless, so nothing may be acted upon.
	fatal := apperrors.New(apperrors.CodeScanIncomplete, fmt.Sprintf("retries exhausted fetching EC2 instances page %d", pageNum))
	fatal.WrappedError = lastErr
	return nil, fatal
}
