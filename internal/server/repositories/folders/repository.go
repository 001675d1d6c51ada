// Package folders persists logical folder rows per backing store.
package folders

import (
	"context"

	"github.com/dmitrijs2005/imghost/internal/server/models"
)

// Repository is the data-access contract for folders.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*models.Folder, error)

	// GetByPath looks a folder up by its unique (path, store) pair.
	// common.ErrorNotFound when absent.
	GetByPath(ctx context.Context, storeID int64, path string) (*models.Folder, error)

	// InsertIfAbsent inserts the folder, doing nothing when the
	// (path, store) uniqueness constraint already holds a row. The
	// constraint, not a pre-check, arbitrates concurrent creation.
	InsertIfAbsent(ctx context.Context, folder *models.Folder) error

	ListByStore(ctx context.Context, storeID int64) ([]*models.Folder, error)
}
