package csrftokens

import (
	"context"
	"fmt"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token string, expiresAt time.Time) error {
	query :=
		`INSERT INTO csrf_tokens (token, expires_at)
		 VALUES ($1, $2)`

	if _, err := r.db.ExecContext(ctx, query, token, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// Consume relies on DELETE being atomic per row: of N concurrent calls with
// the same token, exactly one observes RowsAffected == 1.
func (r *PostgresRepository) Consume(ctx context.Context, token string, now time.Time) error {
	query :=
		`DELETE FROM csrf_tokens
		 WHERE token = $1 AND expires_at > $2`

	res, err := r.db.ExecContext(ctx, query, token, now)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query :=
		`DELETE FROM csrf_tokens
		 WHERE expires_at <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return res.RowsAffected()
}
