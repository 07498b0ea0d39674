package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/centavo-app/centavo/internal/common"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestUpsert_ReplacesPreviousHash(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT INTO refresh_tokens.*ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs("u1", "hash-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Upsert(context.Background(), "u1", "hash-2"); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
}

func TestGetHash_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"token_hash"}).AddRow("hash-1")
	mock.ExpectQuery(`SELECT token_hash FROM refresh_tokens\s+WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(rows)

	hash, err := repo.GetHash(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetHash error: %v", err)
	}
	if hash != "hash-1" {
		t.Fatalf("unexpected hash %q", hash)
	}
}

func TestGetHash_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT token_hash FROM refresh_tokens`).
		WithArgs("u2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetHash(context.Background(), "u2")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM refresh_tokens\s+WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "u1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
}
