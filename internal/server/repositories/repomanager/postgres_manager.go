package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/imghost/internal/server/migrations"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/folders"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/images"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/settings"
	"github.com/dmitrijs2005/imghost/internal/server/repositories/stores"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresRepositoryManager struct {
	db       *sql.DB
	stores   stores.Repository
	folders  folders.Repository
	images   images.Repository
	settings settings.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

func (m *PostgresRepositoryManager) Stores() stores.Repository {
	return m.stores
}

func (m *PostgresRepositoryManager) Folders() folders.Repository {
	return m.folders
}

func (m *PostgresRepositoryManager) Images() images.Repository {
	return m.images
}

func (m *PostgresRepositoryManager) Settings() settings.Repository {
	return m.settings
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:       db,
		stores:   stores.NewPostgresRepository(db),
		folders:  folders.NewPostgresRepository(db),
		images:   images.NewPostgresRepository(db),
		settings: settings.NewPostgresRepository(db),
	}

	err = m.RunMigrations(context.Background())
	if err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
