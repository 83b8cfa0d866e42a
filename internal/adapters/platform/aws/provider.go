package aws

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/adapters/platform/aws/ec2"
	awserrors "github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/adapters/platform/aws/errors"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/adapters/platform/aws/limiter"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/adapters/platform/aws/shared"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/config"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/ports"
	apperrors "github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/errors"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/retry"
)

const ProviderTypeAWS = "aws"

type ClientFactory func(cfg aws.Config) ec2.EC2ClientInterface

// Provider is the AWS implementation of both sweep ports: it discovers the
// regions in scope, scans each one for running instances, and issues the
// batch stop/terminate calls. The SDK clients are stateless and shared
// read-only across workers; regional clients are built once and cached.
type Provider struct {
	baseConfig    aws.Config
	sweepConfig   config.SweepConfig
	platformCfg   config.AWSPlatformConfig
	logger        ports.Logger
	rateLimiter   shared.RateLimiter
	stsClient     shared.STSClientInterface
	clientFactory ClientFactory
	retryPolicy   retry.Policy

	mu        sync.Mutex
	clients   map[string]ec2.EC2ClientInterface
	accountID string
}

type ProviderOption func(*Provider)

func WithClientFactory(factory ClientFactory) ProviderOption {
	return func(p *Provider) { p.clientFactory = factory }
}

func WithSTSClient(client shared.STSClientInterface) ProviderOption {
	return func(p *Provider) { p.stsClient = client }
}

func WithRateLimiter(rl shared.RateLimiter) ProviderOption {
	return func(p *Provider) { p.rateLimiter = rl }
}

func NewProvider(ctx context.Context, cfg *config.Config, logger ports.Logger, opts ...ProviderOption) (*Provider, error) {
	if logger == nil {
		return nil, apperrors.New(apperrors.CodeConfigValidation, "logger cannot be nil for AWS provider")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigValidation, "failed to load default AWS config")
	}

	p := &Provider{
		baseConfig:  awsCfg,
		sweepConfig: cfg.Sweep,
		platformCfg: cfg.Platform.AWS,
		logger:      logger,
		retryPolicy: retry.Policy{
			BaseDelay:   cfg.Sweep.Retry.BaseDelay,
			MaxDelay:    cfg.Sweep.Retry.MaxDelay,
			MaxAttempts: cfg.Sweep.Retry.MaxAttempts,
		},
		clients: make(map[string]ec2.EC2ClientInterface),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rateLimiter == nil {
		p.rateLimiter = limiter.New(cfg.Platform.AWS.APIRateLimitRPS, logger)
	}
	if p.stsClient == nil {
		p.stsClient = sts.NewFromConfig(awsCfg)
	}
	if p.clientFactory == nil {
		p.clientFactory = func(cfg aws.Config) ec2.EC2ClientInterface {
			return awsec2.NewFromConfig(cfg)
		}
	}
	return p, nil
}

func (p *Provider) Type() string {
	return ProviderTypeAWS
}

// DiscoverScopes resolves the regions this sweep covers: the configured
// list when one is given, otherwise every region enabled for the account.
// Zero scopes is an error because a sweep over nothing is a deployment
// mistake, not a clean no-op.
func (p *Provider) DiscoverScopes(ctx context.Context) ([]domain.Scope, error) {
	accountID := p.getAccountID(ctx)

	regions := p.sweepConfig.Regions
	if len(regions) == 0 {
		discovered, err := p.describeRegions(ctx)
		if err != nil {
			return nil, err
		}
		regions = discovered
	}
	if len(regions) == 0 {
		return nil, apperrors.NewUserFacing(apperrors.CodeScanIncomplete,
			"no AWS regions available to sweep",
			"Check the account's enabled regions or set sweep.regions explicitly.")
	}

	scopes := make([]domain.Scope, 0, len(regions))
	for _, region := range regions {
		scopes = append(scopes, domain.Scope{Region: region, AccountID: accountID})
	}
	p.logger.Infof(ctx, "Sweeping %d scope(s): %v", len(scopes), regions)
	return scopes, nil
}

func (p *Provider) describeRegions(ctx context.Context) ([]string, error) {
	if err := p.rateLimiter.Wait(ctx, p.logger); err != nil {
		return nil, err
	}
	client := p.clientForRegion(p.baseConfig.Region)
	output, err := client.DescribeRegions(ctx, &awsec2.DescribeRegionsInput{})
	if err != nil {
		return nil, awserrors.Classify("ec2", "DescribeRegions", err, ctx)
	}
	regions := make([]string, 0, len(output.Regions))
	for _, region := range output.Regions {
		if region.RegionName != nil {
			regions = append(regions, *region.RegionName)
		}
	}
	p.logger.Debugf(ctx, "Discovered regions: %v", regions)
	return regions, nil
}

// Scan streams the running instances of one scope through the regional
// catalog. Errors bubble up classified; the engine treats them as fatal.
func (p *Provider) Scan(ctx context.Context, scope domain.Scope, out chan<- domain.InstanceRecord) error {
	scanLogger := p.logger.WithFields(map[string]any{"scope": scope.String()})
	catalog := ec2.NewCatalog(p.clientForRegion(scope.Region), p.rateLimiter, p.platformCfg.PageSize, p.retryPolicy)
	return catalog.Scan(ctx, scope, scanLogger, out)
}

// Execute issues one batch action call for one chunk within a scope.
func (p *Provider) Execute(ctx context.Context, action domain.Action, scope domain.Scope, ids []string) ([]domain.ActionOutcome, error) {
	execLogger := p.logger.WithFields(map[string]any{"scope": scope.String(), "action": action.String()})
	actions := ec2.NewActions(p.clientForRegion(scope.Region), p.rateLimiter)
	return actions.Execute(ctx, action, scope, ids, execLogger)
}

func (p *Provider) clientForRegion(region string) ec2.EC2ClientInterface {
	p.mu.Lock()
	defer p.mu.Unlock()
	if client, found := p.clients[region]; found {
		return client
	}
	regionalCfg := p.baseConfig.Copy()
	if region != "" {
		regionalCfg.Region = region
	}
	client := p.clientFactory(regionalCfg)
	p.clients[region] = client
	return client
}

// getAccountID resolves the caller's account once per invocation. Failure
// degrades to a warning: identity is scope metadata here, permission
// validation belongs to the deployment.
func (p *Provider) getAccountID(ctx context.Context) string {
	p.mu.Lock()
	cached := p.accountID
	p.mu.Unlock()
	if cached != "" {
		return cached
	}

	output, err := p.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil || output.Account == nil {
		p.logger.Warnf(ctx, "Proceeding without AWS account ID due to STS error: %v", err)
		return ""
	}

	p.mu.Lock()
	p.accountID = *output.Account
	p.mu.Unlock()
	return *output.Account
}
