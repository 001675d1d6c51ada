package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/dbx"
	"github.com/dmitrijs2005/imghost/internal/server/models"
)

const storeColumns = `id, name, owner, token, deploy_hook, status, is_default, size_estimate, file_count, priority, created_at, updated_at`

// PostgresRepository implements Repository over *sql.DB. It keeps the full
// handle (not just dbx.DBTX) because ActivateExclusive opens its own
// transaction.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs a repository bound to the given DB.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanStore(row interface{ Scan(...any) error }) (*models.Store, error) {
	s := &models.Store{}
	err := row.Scan(&s.ID, &s.Name, &s.Owner, &s.Token, &s.DeployHookURL, &s.Status,
		&s.IsDefault, &s.SizeEstimate, &s.FileCount, &s.Priority, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) GetActive(ctx context.Context) (*models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM repositories
		WHERE status = 'active'
		ORDER BY priority ASC, id ASC
		LIMIT 1`
	s, err := scanStore(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM repositories WHERE id = $1`
	s, err := scanStore(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, owner, name string) (*models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM repositories WHERE owner = $1 AND name = $2`
	s, err := scanStore(r.db.QueryRowContext(ctx, query, owner, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM repositories ORDER BY priority ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) NamesByPrefix(ctx context.Context, prefix string) ([]string, error) {
	query := `SELECT name FROM repositories WHERE name LIKE $1`
	rows, err := r.db.QueryContext(ctx, query, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

func insertStore(ctx context.Context, db dbx.DBTX, store *models.Store) (*models.Store, error) {
	query := `INSERT INTO repositories (name, owner, token, deploy_hook, status, is_default, size_estimate, file_count, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	err := db.QueryRowContext(ctx, query,
		store.Name, store.Owner, store.Token, store.DeployHookURL, store.Status,
		store.IsDefault, store.SizeEstimate, store.FileCount, store.Priority).
		Scan(&store.ID, &store.CreatedAt, &store.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return store, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, store *models.Store) (*models.Store, error) {
	return insertStore(ctx, r.db, store)
}

func (r *PostgresRepository) ActivateExclusive(ctx context.Context, store *models.Store) (*models.Store, error) {
	store.Status = models.StoreStatusActive
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := insertStore(ctx, tx, store); err != nil {
			return err
		}
		query := `UPDATE repositories SET status = 'inactive', updated_at = now() WHERE id <> $1 AND status = 'active'`
		if _, err := tx.ExecContext(ctx, query, store.ID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (r *PostgresRepository) UpdateCounters(ctx context.Context, id int64, fileCount, sizeEstimate int64) error {
	query := `UPDATE repositories SET file_count = $1, size_estimate = $2, updated_at = now() WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, fileCount, sizeEstimate, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) AddUpload(ctx context.Context, id int64, sizeBytes int64) error {
	query := `UPDATE repositories SET size_estimate = size_estimate + $1, file_count = file_count + 1, updated_at = now() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, sizeBytes, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) SubtractDelete(ctx context.Context, id int64, sizeBytes int64) error {
	query := `UPDATE repositories SET size_estimate = GREATEST(0, size_estimate - $1), file_count = GREATEST(0, file_count - 1), updated_at = now() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, sizeBytes, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id int64, status models.StoreStatus) error {
	query := `UPDATE repositories SET status = $1, updated_at = now() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (r *PostgresRepository) FirstDeployHook(ctx context.Context) (string, error) {
	query := `SELECT deploy_hook FROM repositories WHERE deploy_hook <> '' ORDER BY id ASC LIMIT 1`
	var hook string
	err := r.db.QueryRowContext(ctx, query).Scan(&hook)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrorNotFound
	}
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return hook, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
