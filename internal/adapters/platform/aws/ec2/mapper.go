package ec2

import (
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/errors"
)

// mapInstanceState translates the SDK state name into the domain enum.
// Unknown names map to the raw value so logs stay informative.
func mapInstanceState(state *ec2types.InstanceState) domain.InstanceState {
	if state == nil {
		return ""
	}
	switch state.Name {
	case ec2types.InstanceStateNamePending:
		return domain.StatePending
	case ec2types.InstanceStateNameRunning:
		return domain.StateRunning
	case ec2types.InstanceStateNameShuttingDown:
		return domain.StateShuttingDown
	case ec2types.InstanceStateNameTerminated:
		return domain.StateTerminated
	case ec2types.InstanceStateNameStopping:
		return domain.StateStopping
	case ec2types.InstanceStateNameStopped:
		return domain.StateStopped
	default:
		return domain.InstanceState(state.Name)
	}
}

// MapInstanceToRecord produces the immutable scan-time snapshot for one
// instance returned by DescribeInstances.
func MapInstanceToRecord(instance Instance, scope domain.Scope) (domain.InstanceRecord, error) {
	if instance.InstanceId == nil {
		return domain.InstanceRecord{}, errors.New(errors.CodeInternal, "received EC2 instance with nil InstanceId")
	}
	return domain.InstanceRecord{
		ID:    *instance.InstanceId,
		State: mapInstanceState(instance.State),
		Scope: scope,
	}, nil
}
