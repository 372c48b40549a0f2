package registry

import (
	"slices"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// transitions lists the allowed status changes. pending is only ever an
// initial state; failed is reachable only from pending, when provisioning
// could not complete.
var transitions = map[tenant.Status][]tenant.Status{
	tenant.StatusPending:   {tenant.StatusActive, tenant.StatusTrial, tenant.StatusFailed},
	tenant.StatusFailed:    {tenant.StatusActive, tenant.StatusTrial},
	tenant.StatusTrial:     {tenant.StatusActive, tenant.StatusInactive, tenant.StatusSuspended},
	tenant.StatusActive:    {tenant.StatusInactive, tenant.StatusSuspended},
	tenant.StatusInactive:  {tenant.StatusActive, tenant.StatusTrial, tenant.StatusSuspended},
	tenant.StatusSuspended: {tenant.StatusActive, tenant.StatusTrial, tenant.StatusInactive},
}

// CanTransition reports whether a tenant in status from may move to status to.
// Staying in the same status is always allowed.
func CanTransition(from, to tenant.Status) bool {
	if from == to {
		return from.Valid()
	}
	return slices.Contains(transitions[from], to)
}

func checkTransition(from, to tenant.Status) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
