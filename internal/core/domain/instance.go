package domain

// InstanceState mirrors the provider's instance lifecycle state names.
type InstanceState string

const (
	StatePending      InstanceState = "pending"
	StateRunning      InstanceState = "running"
	StateShuttingDown InstanceState = "shutting-down"
	StateTerminated   InstanceState = "terminated"
	StateStopping     InstanceState = "stopping"
	StateStopped      InstanceState = "stopped"
)

func (s InstanceState) String() string {
	return string(s)
}

// Scope is the account/region boundary a sweep discovers instances in.
type Scope struct {
	Region    string
	AccountID string
}

func (s Scope) String() string {
	if s.AccountID == "" {
		return s.Region
	}
	return s.AccountID + "/" + s.Region
}

// InstanceRecord is an immutable snapshot of one instance taken at scan
// time. It may be stale by dispatch time; the executor resolves races
// against the provider's eventual consistency.
type InstanceRecord struct {
	ID    string
	State InstanceState
	Scope Scope
}
