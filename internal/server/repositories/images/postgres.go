package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/dbx"
	"github.com/dmitrijs2005/imghost/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const imageColumns = `id, repository_id, filename, size, mime_type, remote_path, sha, created_at, updated_at`

// uniqueViolation is the Postgres SQLSTATE for a uniqueness constraint hit.
const uniqueViolation = "23505"

// PostgresRepository implements image storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Exists(ctx context.Context, storeID int64, filename string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM images WHERE repository_id = $1 AND filename = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, storeID, filename).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, image *models.Image) (*models.Image, error) {
	query := `INSERT INTO images (repository_id, filename, size, mime_type, remote_path, sha)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		image.StoreID, image.Filename, image.Size, image.MimeType, image.RemotePath, image.SHA).
		Scan(&image.ID, &image.CreatedAt, &image.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return image, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`
	img := &models.Image{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&img.ID, &img.StoreID, &img.Filename, &img.Size, &img.MimeType, &img.RemotePath, &img.SHA, &img.CreatedAt, &img.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return img, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (*models.Image, error) {
	query := `DELETE FROM images WHERE id = $1 RETURNING ` + imageColumns
	img := &models.Image{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&img.ID, &img.StoreID, &img.Filename, &img.Size, &img.MimeType, &img.RemotePath, &img.SHA, &img.CreatedAt, &img.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return img, nil
}

func (r *PostgresRepository) StatsByStore(ctx context.Context, storeID int64) (int64, int64, error) {
	query := `SELECT COUNT(id), COALESCE(SUM(size), 0) FROM images WHERE repository_id = $1`
	var count, total int64
	if err := r.db.QueryRowContext(ctx, query, storeID).Scan(&count, &total); err != nil {
		return 0, 0, fmt.Errorf("db error: %w", err)
	}
	return count, total, nil
}

func (r *PostgresRepository) ListByPathPrefix(ctx context.Context, storeID int64, prefix string) ([]*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images
		WHERE repository_id = $1 AND remote_path LIKE $2 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, storeID, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Image
	for rows.Next() {
		img := &models.Image{}
		if err := rows.Scan(&img.ID, &img.StoreID, &img.Filename, &img.Size, &img.MimeType, &img.RemotePath, &img.SHA, &img.CreatedAt, &img.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
