package provision

import "time"

// State is the catalog state of a tenant partition.
type State string

const (
	// StateProvisioning: creation started and has not committed yet.
	StateProvisioning State = "provisioning"
	// StateReady: complete and at a known revision; the only routable state.
	StateReady State = "ready"
	// StateQuarantined: creation failed; contents are incomplete.
	StateQuarantined State = "quarantined"
	// StateDegraded: complete, but the last upgrade failed part way.
	StateDegraded State = "degraded"
)

func (s State) Valid() bool {
	switch s {
	case StateProvisioning, StateReady, StateQuarantined, StateDegraded:
		return true
	}
	return false
}

// Routable reports whether live traffic may reach a partition in this state.
func (s State) Routable() bool {
	return s == StateReady
}

// Partition is a row of the partition catalog in the shared namespace.
type Partition struct {
	Slug      string    `json:"slug"`
	Schema    string    `json:"schema"`
	Revision  int64     `json:"revision"`
	State     State     `json:"state"`
	LastError string    `json:"last_error,omitempty"`
	Attempts  int       `json:"attempts"`
	UpdatedAt time.Time `json:"updated_at"`
}
