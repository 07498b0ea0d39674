package tokensecrets

import (
	"context"
	"fmt"

	"github.com/centavo-app/centavo/internal/dbx"
	"github.com/centavo-app/centavo/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListRetained(ctx context.Context) ([]*models.TokenSecret, error) {
	query :=
		`SELECT id, created_at, access_secret, refresh_secret FROM token_secrets
		 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var secrets []*models.TokenSecret
	for rows.Next() {
		s := &models.TokenSecret{}
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.AccessSecret, &s.RefreshSecret); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		secrets = append(secrets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return secrets, nil
}

func (r *PostgresRepository) Create(ctx context.Context, accessSecret, refreshSecret []byte) (*models.TokenSecret, error) {
	query :=
		`INSERT INTO token_secrets (access_secret, refresh_secret)
		 VALUES ($1, $2)
		 RETURNING id, created_at`

	s := &models.TokenSecret{AccessSecret: accessSecret, RefreshSecret: refreshSecret}
	err := r.db.QueryRowContext(ctx, query, accessSecret, refreshSecret).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}

func (r *PostgresRepository) DeleteAllButLatest(ctx context.Context) (int64, error) {
	query :=
		`DELETE FROM token_secrets
		 WHERE id <> (SELECT id FROM token_secrets ORDER BY created_at DESC, id DESC LIMIT 1)`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return res.RowsAffected()
}
