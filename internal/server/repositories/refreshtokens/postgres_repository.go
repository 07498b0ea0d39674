package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, userID string, tokenHash string) error {
	query :=
		`INSERT INTO refresh_tokens (user_id, token_hash, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET token_hash = $2, created_at = now()`

	if _, err := r.db.ExecContext(ctx, query, userID, tokenHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetHash(ctx context.Context, userID string) (string, error) {
	query :=
		`SELECT token_hash FROM refresh_tokens
		 WHERE user_id = $1`

	var hash string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	return hash, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	query :=
		`DELETE FROM refresh_tokens
		 WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
