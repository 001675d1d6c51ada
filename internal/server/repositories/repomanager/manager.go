// Package repomanager owns the database handle and hands out the
// per-entity repositories bound to it.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/imghost/internal/server/repositories/folders"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/images"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/settings"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/stores"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Conn() *sql.DB
	Close() error
	Stores() stores.Repository
	Folders() folders.Repository
	Images() images.Repository
	Settings() settings.Repository
}
