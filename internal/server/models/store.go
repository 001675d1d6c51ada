// Package models defines server-side data models persisted in the database.
package models

import "time"

// StoreStatus is the lifecycle state of a backing store.
type StoreStatus string

const (
	// StoreStatusActive marks the store new uploads are allocated to.
	StoreStatusActive StoreStatus = "active"
	// StoreStatusInactive marks a store rotated out by a newer one.
	StoreStatusInactive StoreStatus = "inactive"
	// StoreStatusFull marks a store at or over the size threshold.
	StoreStatusFull StoreStatus = "full"
)

// Store describes one backing store: an externally addressable repository
// holding blob content. Under normal operation exactly one store is active
// (selected by lowest Priority, then lowest ID); the design tolerates zero
// or several by auto-creating a default or picking the first eligible.
type Store struct {
	ID    int64
	Owner string
	Name  string
	// Token is the credential used by the backing-store client for this
	// store. Empty means "use the globally configured credential".
	Token  string
	Status StoreStatus
	// SizeEstimate is the running byte total maintained incrementally on
	// writes/deletes and resynced authoritatively by the reconciler.
	SizeEstimate int64
	FileCount    int64
	Priority     int
	// DeployHookURL is POSTed after writes; empty falls back to the global
	// hook.
	DeployHookURL string
	IsDefault     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Active reports whether new uploads may land in this store.
func (s *Store) Active() bool { return s.Status == StoreStatusActive }
