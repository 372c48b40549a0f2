// Package registry is the durable catalog of tenants and their lifecycle
// state, stored in the shared namespace.
//
// Create assigns an id, derives a slug from the display name when none is
// given and stores the tenant as pending; provisioning is a separate step
// (see package onboarding). Update enforces the lifecycle:
//
//	pending   -> active | trial | failed
//	failed    -> active | trial
//	trial     -> active | inactive | suspended
//	active    -> inactive | suspended
//	inactive  -> active | trial | suspended
//	suspended -> active | trial | inactive
//
// The slug is immutable: it names the tenant's partition.
//
// Registry implements tenant.Provider, so it can back the resolution
// middleware directly. When configured WithCache, every successful Update
// evicts the tenant's id and slug keys.
package registry
