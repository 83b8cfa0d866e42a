package mocks

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/mock"

	ports "github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/ports"
)

// MockSTSClient is a mock implementation of the STS client
type MockSTSClient struct {
	mock.Mock
}

func (m *MockSTSClient) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sts.GetCallerIdentityOutput), args.Error(1)
}

// MockEC2Client is a mock implementation of the EC2 client
type MockEC2Client struct {
	mock.Mock
}

func (m *MockEC2Client) DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ec2.DescribeRegionsOutput), args.Error(1)
}

func (m *MockEC2Client) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ec2.DescribeInstancesOutput), args.Error(1)
}

func (m *MockEC2Client) StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ec2.StopInstancesOutput), args.Error(1)
}

func (m *MockEC2Client) TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ec2.TerminateInstancesOutput), args.Error(1)
}

// MockEC2InstancesPaginator is a mock implementation of the EC2 instances paginator
type MockEC2InstancesPaginator struct {
	mock.Mock
	MaxPages int
	curPage  int
}

func (m *MockEC2InstancesPaginator) HasMorePages() bool {
	for _, call := range m.ExpectedCalls {
		if call.Method == "HasMorePages" {
			return m.Called().Bool(0)
		}
	}

	// Fallback behavior if no explicit expectation
	m.curPage++
	return m.curPage <= m.MaxPages
}

func (m *MockEC2InstancesPaginator) NextPage(ctx context.Context, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	args := m.Called(ctx, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ec2.DescribeInstancesOutput), args.Error(1)
}

// NopRateLimiter satisfies shared.RateLimiter without throttling, for tests.
type NopRateLimiter struct{}

func (NopRateLimiter) Wait(ctx context.Context, logger ports.Logger) error {
	return ctx.Err()
}

// NopLogger satisfies ports.Logger and discards everything, for tests.
type NopLogger struct{}

func (NopLogger) Debugf(ctx context.Context, format string, args ...any)            {}
func (NopLogger) Infof(ctx context.Context, format string, args ...any)             {}
func (NopLogger) Warnf(ctx context.Context, format string, args ...any)             {}
func (NopLogger) Errorf(ctx context.Context, err error, format string, args ...any) {}
func (NopLogger) WithFields(fields map[string]any) ports.Logger                     { return NopLogger{} }

// Helper function to reset all mocks
func ResetAllMocks(mocks ...interface{}) {
	for _, m := range mocks {
		if mockObj, ok := m.(interface{ AssertExpectations(t mock.TestingT) bool }); ok {
			switch mockTyped := mockObj.(type) {
			case *MockSTSClient:
				mockTyped.ExpectedCalls = nil
				mockTyped.Calls = nil
			case *MockEC2Client:
				mockTyped.ExpectedCalls = nil
				mockTyped.Calls = nil
			case *MockEC2InstancesPaginator:
				mockTyped.ExpectedCalls = nil
				mockTyped.Calls = nil
				mockTyped.curPage = 0
			}
		}
	}
}
