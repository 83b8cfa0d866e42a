package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/core/domain"
)

func TestDecide(t *testing.T) {
	scope := domain.Scope{Region: "us-east-1"}

	testCases := []struct {
		name     string
		state    domain.InstanceState
		action   domain.Action
		expected Decision
	}{
		{name: "running stop", state: domain.StateRunning, action: domain.ActionStop, expected: DecisionApply},
		{name: "running terminate", state: domain.StateRunning, action: domain.ActionTerminate, expected: DecisionApply},
		{name: "pending stop", state: domain.StatePending, action: domain.ActionStop, expected: DecisionSkip},
		{name: "stopping terminate", state: domain.StateStopping, action: domain.ActionTerminate, expected: DecisionSkip},
		{name: "stopped stop", state: domain.StateStopped, action: domain.ActionStop, expected: DecisionSkip},
		{name: "terminated terminate", state: domain.StateTerminated, action: domain.ActionTerminate, expected: DecisionSkip},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			record := domain.InstanceRecord{ID: "i-0123456789abcdef0", State: tc.state, Scope: scope}
			assert.Equal(t, tc.expected, Decide(record, tc.action))
		})
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	record := domain.InstanceRecord{ID: "i-0123456789abcdef0", State: domain.StateRunning, Scope: domain.Scope{Region: "eu-west-1"}}
	first := Decide(record, domain.ActionTerminate)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Decide(record, domain.ActionTerminate))
	}
}
