// Package images persists uploaded-file metadata rows.
package images

import (
	"context"

	"github.com/dmitrijs2005/imghost/internal/server/models"
)

// Repository is the data-access contract for image rows.
type Repository interface {
	// Exists reports whether (storeID, filename) already holds a row.
	Exists(ctx context.Context, storeID int64, filename string) (bool, error)

	// Insert persists a new row. A uniqueness violation on
	// (repository_id, filename) surfaces as common.ErrorConflict.
	Insert(ctx context.Context, image *models.Image) (*models.Image, error)

	GetByID(ctx context.Context, id int64) (*models.Image, error)

	// Delete removes a row and returns it, so the caller can decrement the
	// store estimate. common.ErrorNotFound when absent.
	Delete(ctx context.Context, id int64) (*models.Image, error)

	// StatsByStore sums the authoritative file count and byte total for
	// one store.
	StatsByStore(ctx context.Context, storeID int64) (fileCount int64, totalSize int64, err error)

	// ListByPathPrefix returns rows whose remote path starts with prefix,
	// used to enumerate a folder's files.
	ListByPathPrefix(ctx context.Context, storeID int64, prefix string) ([]*models.Image, error)
}
