package cursorkeys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/dbx"
	"github.com/centavo-app/centavo/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Active(ctx context.Context, now time.Time) (*models.CursorKey, error) {
	query :=
		`SELECT id, created_at, expires_at, key_data FROM cursor_keys
		 WHERE expires_at IS NULL OR expires_at > $1
		 ORDER BY created_at DESC
		 LIMIT 1`

	key := &models.CursorKey{}
	err := r.db.QueryRowContext(ctx, query, now).
		Scan(&key.ID, &key.CreatedAt, &key.ExpiresAt, &key.KeyData)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return key, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int32) (*models.CursorKey, error) {
	query :=
		`SELECT id, created_at, expires_at, key_data FROM cursor_keys
		 WHERE id = $1`

	key := &models.CursorKey{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&key.ID, &key.CreatedAt, &key.ExpiresAt, &key.KeyData)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return key, nil
}

func (r *PostgresRepository) Create(ctx context.Context, keyData []byte, expiresAt *time.Time) (*models.CursorKey, error) {
	query :=
		`INSERT INTO cursor_keys (key_data, expires_at)
		 VALUES ($1, $2)
		 RETURNING id, created_at`

	key := &models.CursorKey{KeyData: keyData, ExpiresAt: expiresAt}
	err := r.db.QueryRowContext(ctx, query, keyData, expiresAt).
		Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return key, nil
}

func (r *PostgresRepository) Expire(ctx context.Context, id int32, at time.Time) error {
	query :=
		`UPDATE cursor_keys SET expires_at = $2
		 WHERE id = $1 AND expires_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query :=
		`DELETE FROM cursor_keys
		 WHERE expires_at IS NOT NULL AND expires_at < $1`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return res.RowsAffected()
}
