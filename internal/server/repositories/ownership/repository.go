// Package ownership declares the read-only repository the authorization
// engine uses to resolve the owning user of a resource. It never caches:
// every call reflects the latest committed state, so an ownership transfer
// or deletion is visible on the next authorization check.
package ownership

import (
	"context"

	"github.com/centavo-app/centavo/internal/server/models"
)

// Owner is the resolved ownership chain of an account or transaction.
type Owner struct {
	UserID        string
	AccountID     string
	InstitutionID string
}

type Repository interface {
	// AccountOwner resolves an account to its owning user and institution.
	// Unknown accounts yield common.ErrorNotFound.
	AccountOwner(ctx context.Context, accountID string) (*Owner, error)

	// TransactionOwner resolves a transaction through its account to the
	// owning user. Unknown transactions yield common.ErrorNotFound.
	TransactionOwner(ctx context.Context, transactionID string) (*Owner, error)

	// UserExists, InstitutionExists, and AssetExists report whether the
	// referenced entity is present; used to distinguish not-found from
	// forbidden for unowned resources.
	UserExists(ctx context.Context, id string) (bool, error)
	InstitutionExists(ctx context.Context, id string) (bool, error)
	AssetExists(ctx context.Context, id string) (bool, error)

	// ListDelegations returns every delegation rule granted to the user.
	ListDelegations(ctx context.Context, userID string) ([]*models.Delegation, error)
}
