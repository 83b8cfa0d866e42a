package aws

import (
	"context"
	"sync/atomic"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/adapters/platform/aws/ec2"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/config"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	apperrors "github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/errors"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/mocks"
)

func callerIdentity(account string) *sts.GetCallerIdentityOutput {
	return &sts.GetCallerIdentityOutput{Account: sdkaws.String(account)}
}

func regionsOutput(names ...string) *awsec2.DescribeRegionsOutput {
	regions := make([]ec2types.Region, 0, len(names))
	for _, name := range names {
		regions = append(regions, ec2types.Region{RegionName: sdkaws.String(name)})
	}
	return &awsec2.DescribeRegionsOutput{Regions: regions}
}

func newTestProvider(t *testing.T, cfg *config.Config, ec2Client *mocks.MockEC2Client, stsClient *mocks.MockSTSClient) *Provider {
	t.Helper()
	provider, err := NewProvider(context.Background(), cfg, mocks.NopLogger{},
		WithClientFactory(func(sdkaws.Config) ec2.EC2ClientInterface { return ec2Client }),
		WithSTSClient(stsClient),
		WithRateLimiter(mocks.NopRateLimiter{}),
	)
	require.NoError(t, err)
	return provider
}

func TestDiscoverScopesUsesConfiguredRegions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sweep.Regions = []string{"us-east-1", "eu-west-1"}

	ec2Client := &mocks.MockEC2Client{}
	stsClient := &mocks.MockSTSClient{}
	stsClient.On("GetCallerIdentity", mock.Anything, mock.Anything, mock.Anything).
		Return(callerIdentity("123456789012"), nil).Once()

	provider := newTestProvider(t, cfg, ec2Client, stsClient)
	scopes, err := provider.DiscoverScopes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.Scope{
		{Region: "us-east-1", AccountID: "123456789012"},
		{Region: "eu-west-1", AccountID: "123456789012"},
	}, scopes)
	ec2Client.AssertNotCalled(t, "DescribeRegions", mock.Anything, mock.Anything, mock.Anything)
}

func TestDiscoverScopesFallsBackToRegionDiscovery(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sweep.Regions = nil

	ec2Client := &mocks.MockEC2Client{}
	ec2Client.On("DescribeRegions", mock.Anything, mock.Anything, mock.Anything).
		Return(regionsOutput("us-east-1", "us-west-2", "eu-central-1"), nil).Once()
	stsClient := &mocks.MockSTSClient{}
	stsClient.On("GetCallerIdentity", mock.Anything, mock.Anything, mock.Anything).
		Return(callerIdentity("123456789012"), nil).Once()

	provider := newTestProvider(t, cfg, ec2Client, stsClient)
	scopes, err := provider.DiscoverScopes(context.Background())
	require.NoError(t, err)

	require.Len(t, scopes, 3)
	assert.Equal(t, "us-west-2", scopes[1].Region)
	ec2Client.AssertExpectations(t)
}

func TestDiscoverScopesZeroRegionsIsAnError(t *testing.T) {
	cfg := config.DefaultConfig()
	ec2Client := &mocks.MockEC2Client{}
	ec2Client.On("DescribeRegions", mock.Anything, mock.Anything, mock.Anything).
		Return(regionsOutput(), nil).Once()
	stsClient := &mocks.MockSTSClient{}
	stsClient.On("GetCallerIdentity", mock.Anything, mock.Anything, mock.Anything).
		Return(callerIdentity("123456789012"), nil).Once()

	provider := newTestProvider(t, cfg, ec2Client, stsClient)
	scopes, err := provider.DiscoverScopes(context.Background())

	require.Error(t, err)
	assert.Nil(t, scopes)
	assert.True(t, apperrors.Is(err, apperrors.CodeScanIncomplete))
	_, _, userFacing := apperrors.GetUserFacingMessage(err)
	assert.True(t, userFacing)
}

func TestDiscoverScopesDegradesWithoutSTS(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sweep.Regions = []string{"us-east-1"}

	ec2Client := &mocks.MockEC2Client{}
	stsClient := &mocks.MockSTSClient{}
	stsClient.On("GetCallerIdentity", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	provider := newTestProvider(t, cfg, ec2Client, stsClient)
	scopes, err := provider.DiscoverScopes(context.Background())

	require.NoError(t, err)
	require.Len(t, scopes, 1)
	assert.Empty(t, scopes[0].AccountID)
}

func TestProviderCachesRegionalClients(t *testing.T) {
	cfg := config.DefaultConfig()
	ec2Client := &mocks.MockEC2Client{}
	ec2Client.On("StopInstances", mock.Anything, mock.Anything, mock.Anything).Return(&awsec2.StopInstancesOutput{
		StoppingInstances: []ec2types.InstanceStateChange{{
			InstanceId:    sdkaws.String("i-0123456789abcdef0"),
			PreviousState: &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
			CurrentState:  &ec2types.InstanceState{Name: ec2types.InstanceStateNameStopping},
		}},
	}, nil)

	var built atomic.Int32
	provider, err := NewProvider(context.Background(), cfg, mocks.NopLogger{},
		WithClientFactory(func(sdkaws.Config) ec2.EC2ClientInterface {
			built.Add(1)
			return ec2Client
		}),
		WithSTSClient(&mocks.MockSTSClient{}),
		WithRateLimiter(mocks.NopRateLimiter{}),
	)
	require.NoError(t, err)

	scope := domain.Scope{Region: "us-east-1"}
	for i := 0; i < 3; i++ {
		outcomes, execErr := provider.Execute(context.Background(), domain.ActionStop, scope, []string{"i-0123456789abcdef0"})
		require.NoError(t, execErr)
		require.Len(t, outcomes, 1)
		assert.Equal(t, domain.OutcomeApplied, outcomes[0].Result)
	}
	assert.Equal(t, int32(1), built.Load())
}
