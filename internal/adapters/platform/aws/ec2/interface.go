package ec2

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

//go:generate mockery --name EC2ClientInterface --output ./mocks --outpkg mocks --case underscore
//go:generate mockery --name EC2InstancesPaginator --output ./mocks --outpkg mocks --case underscore

type EC2ClientInterface interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
}

type EC2InstancesPaginator interface {
	HasMorePages() bool
	NextPage(ctx context.Context, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// PaginatorFactory lets tests substitute a fake pagination sequence.
type PaginatorFactory func(client EC2ClientInterface, input *ec2.DescribeInstancesInput) EC2InstancesPaginator

func defaultPaginatorFactory(client EC2ClientInterface, input *ec2.DescribeInstancesInput) EC2InstancesPaginator {
	return ec2.NewDescribeInstancesPaginator(client, input)
}

type Instance = ec2types.Instance // Alias ec2types.Instance for easier use
