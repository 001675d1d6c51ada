// Package stores persists backing-store rows (the `repositories` table).
package stores

import (
	"context"

	"github.com/dmitrijs2005/imghost/internal/server/models"
)

// Repository is the data-access contract for backing stores.
type Repository interface {
	// GetActive returns the current active store: lowest priority, then
	// lowest id. common.ErrorNotFound when no store is active.
	GetActive(ctx context.Context) (*models.Store, error)

	GetByID(ctx context.Context, id int64) (*models.Store, error)
	GetByName(ctx context.Context, owner, name string) (*models.Store, error)

	// List returns every store ordered by priority, then id.
	List(ctx context.Context) ([]*models.Store, error)

	// NamesByPrefix returns store names starting with prefix, used to scan
	// for the highest rotation suffix.
	NamesByPrefix(ctx context.Context, prefix string) ([]string, error)

	// Insert persists a new store row and returns it with the assigned id.
	Insert(ctx context.Context, store *models.Store) (*models.Store, error)

	// ActivateExclusive inserts the store as active and flips every other
	// store to inactive, atomically.
	ActivateExclusive(ctx context.Context, store *models.Store) (*models.Store, error)

	// UpdateCounters overwrites file_count and size_estimate with
	// authoritative values computed by the reconciler.
	UpdateCounters(ctx context.Context, id int64, fileCount, sizeEstimate int64) error

	// AddUpload bumps size_estimate and file_count for one committed write.
	AddUpload(ctx context.Context, id int64, sizeBytes int64) error

	// SubtractDelete lowers size_estimate (clamped at zero) and file_count
	// for one deleted file.
	SubtractDelete(ctx context.Context, id int64, sizeBytes int64) error

	SetStatus(ctx context.Context, id int64, status models.StoreStatus) error

	// FirstDeployHook returns any configured deploy hook across stores, so
	// a rotated-in store can inherit one. common.ErrorNotFound when none.
	FirstDeployHook(ctx context.Context) (string, error)
}
