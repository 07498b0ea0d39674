package ownership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) AccountOwner(ctx context.Context, accountID string) (*Owner, error) {
	query :=
		`SELECT user_id, institution_id FROM accounts
		 WHERE id = $1`

	owner := &Owner{AccountID: accountID}
	err := r.db.QueryRowContext(ctx, query, accountID).
		Scan(&owner.UserID, &owner.InstitutionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return owner, nil
}

func (r *PostgresRepository) TransactionOwner(ctx context.Context, transactionID string) (*Owner, error) {
	query :=
		`SELECT a.id, a.user_id, a.institution_id
		 FROM transactions t
		 JOIN accounts a ON a.id = t.account_id
		 WHERE t.id = $1`

	owner := &Owner{}
	err := r.db.QueryRowContext(ctx, query, transactionID).
		Scan(&owner.AccountID, &owner.UserID, &owner.InstitutionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return owner, nil
}

func (r *PostgresRepository) UserExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) InstitutionExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM institutions WHERE id = $1`, id)
}

func (r *PostgresRepository) AssetExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM assets WHERE id = $1`, id)
}

func (r *PostgresRepository) exists(ctx context.Context, query string, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) ListDelegations(ctx context.Context, userID string) ([]*models.Delegation, error) {
	query :=
		`SELECT user_id, resource_type, resource_id, action, effect FROM delegations
		 WHERE user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var delegations []*models.Delegation
	for rows.Next() {
		d := &models.Delegation{}
		if err := rows.Scan(&d.UserID, &d.ResourceType, &d.ResourceID, &d.Action, &d.Effect); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		delegations = append(delegations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return delegations, nil
}
