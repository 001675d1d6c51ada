package folders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/dbx"
	"github.com/dmitrijs2005/imghost/internal/server/models"
)

// PostgresRepository implements folder storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Folder, error) {
	query := `SELECT id, name, path, repository_id, created_at, updated_at FROM folders WHERE id = $1`
	f := &models.Folder{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&f.ID, &f.Name, &f.Path, &f.StoreID, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) GetByPath(ctx context.Context, storeID int64, path string) (*models.Folder, error) {
	query := `SELECT id, name, path, repository_id, created_at, updated_at FROM folders
		WHERE path = $1 AND repository_id = $2`
	f := &models.Folder{}
	err := r.db.QueryRowContext(ctx, query, path, storeID).
		Scan(&f.ID, &f.Name, &f.Path, &f.StoreID, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, folder *models.Folder) error {
	query := `INSERT INTO folders (name, path, repository_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (path, repository_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, folder.Name, folder.Path, folder.StoreID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByStore(ctx context.Context, storeID int64) ([]*models.Folder, error) {
	query := `SELECT id, name, path, repository_id, created_at, updated_at FROM folders
		WHERE repository_id = $1 ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Folder
	for rows.Next() {
		f := &models.Folder{}
		if err := rows.Scan(&f.ID, &f.Name, &f.Path, &f.StoreID, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
