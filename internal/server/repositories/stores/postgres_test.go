package stores

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/imghost/internal/common"
	"github.com/dmitrijs2005/imghost/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func storeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "owner", "token", "deploy_hook", "status",
		"is_default", "size_estimate", "file_count", "priority", "created_at", "updated_at",
	})
}

func TestGetActive_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,.*FROM\s+repositories\s+WHERE\s+status\s*=\s*'active'\s+ORDER\s+BY\s+priority\s+ASC,\s*id\s+ASC\s+LIMIT\s+1\s*$`

	now := time.Now()
	rows := storeRows().AddRow(int64(1), "images", "acme", "tok", "", "active",
		true, int64(100), int64(3), 0, now, now)
	mock.ExpectQuery(q).WillReturnRows(rows)

	got, err := repo.GetActive(context.Background())
	if err != nil {
		t.Fatalf("GetActive error: %v", err)
	}
	if got.ID != 1 || got.Name != "images" || got.Status != models.StoreStatusActive {
		t.Fatalf("unexpected store: %+v", got)
	}
}

func TestGetActive_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*status\s*=\s*'active'`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetActive(context.Background())
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+repositories\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs(int64(5)).
		WillReturnError(errors.New("db down"))

	_, err := repo.GetByID(context.Background(), 5)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestNamesByPrefix(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+name\s+FROM\s+repositories\s+WHERE\s+name\s+LIKE\s+\$1\s*$`
	rows := sqlmock.NewRows([]string{"name"}).AddRow("images-001").AddRow("images-002")
	mock.ExpectQuery(q).WithArgs("images-%").WillReturnRows(rows)

	names, err := repo.NamesByPrefix(context.Background(), "images-")
	if err != nil {
		t.Fatalf("NamesByPrefix error: %v", err)
	}
	if len(names) != 2 || names[0] != "images-001" || names[1] != "images-002" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestInsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+repositories\s*\(name,\s*owner,\s*token,\s*deploy_hook,\s*status,\s*is_default,\s*size_estimate,\s*file_count,\s*priority\)`

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now)
	mock.ExpectQuery(q).
		WithArgs("images", "acme", "tok", "", "active", false, int64(0), int64(0), 0).
		WillReturnRows(rows)

	got, err := repo.Insert(context.Background(), &models.Store{
		Name: "images", Owner: "acme", Token: "tok", Status: models.StoreStatusActive,
	})
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if got.ID != 7 {
		t.Fatalf("unexpected id: %d", got.ID)
	}
}

func TestActivateExclusive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+repositories`).
		WithArgs("images-002", "acme", "tok", "", "active", false, int64(0), int64(0), 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(9), now, now))
	mock.ExpectExec(`(?s)^UPDATE\s+repositories\s+SET\s+status\s*=\s*'inactive'.*WHERE\s+id\s*<>\s*\$1\s+AND\s+status\s*=\s*'active'\s*$`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.ActivateExclusive(context.Background(), &models.Store{
		Name: "images-002", Owner: "acme", Token: "tok",
	})
	if err != nil {
		t.Fatalf("ActivateExclusive error: %v", err)
	}
	if got.ID != 9 || got.Status != models.StoreStatusActive {
		t.Fatalf("unexpected store: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestActivateExclusive_RollbackOnError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+repositories`).
		WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	_, err := repo.ActivateExclusive(context.Background(), &models.Store{Name: "x", Owner: "acme"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddUpload(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+repositories\s+SET\s+size_estimate\s*=\s*size_estimate\s*\+\s*\$1,\s*file_count\s*=\s*file_count\s*\+\s*1`
	mock.ExpectExec(q).WithArgs(int64(1024), int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.AddUpload(context.Background(), 1, 1024); err != nil {
		t.Fatalf("AddUpload error: %v", err)
	}
}

func TestSubtractDelete_ClampsAtZero(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+repositories\s+SET\s+size_estimate\s*=\s*GREATEST\(0,\s*size_estimate\s*-\s*\$1\)`
	mock.ExpectExec(q).WithArgs(int64(1024), int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SubtractDelete(context.Background(), 1, 1024); err != nil {
		t.Fatalf("SubtractDelete error: %v", err)
	}
}

func TestSetStatus_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+repositories\s+SET\s+status\s*=\s*\$1`).
		WithArgs("full", int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetStatus(context.Background(), 99, models.StoreStatusFull)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFirstDeployHook(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+deploy_hook\s+FROM\s+repositories\s+WHERE\s+deploy_hook\s*<>\s*''\s+ORDER\s+BY\s+id\s+ASC\s+LIMIT\s+1\s*$`
	rows := sqlmock.NewRows([]string{"deploy_hook"}).AddRow("https://hooks.example.com/deploy")
	mock.ExpectQuery(q).WillReturnRows(rows)

	hook, err := repo.FirstDeployHook(context.Background())
	if err != nil {
		t.Fatalf("FirstDeployHook error: %v", err)
	}
	if hook != "https://hooks.example.com/deploy" {
		t.Fatalf("unexpected hook: %s", hook)
	}
}

func TestFirstDeployHook_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+deploy_hook\s+FROM\s+repositories`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FirstDeployHook(context.Background())
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
