package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/logging"
	"github.com/centavo-app/centavo/internal/server/auth"
	"github.com/centavo-app/centavo/internal/server/metrics"
	"github.com/centavo-app/centavo/internal/server/models"
	"github.com/centavo-app/centavo/internal/server/repositories/ownership"
	"github.com/centavo-app/centavo/internal/server/repositories/repomanager"
)

// Resource type names understood by the policy engine.
const (
	ResourceUser        = "user"
	ResourceInstitution = "institution"
	ResourceAccount     = "account"
	ResourceTransaction = "transaction"
	ResourceAsset       = "asset"
)

// Actions a principal can request on a resource.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Resource names one node of the ownership hierarchy.
type Resource struct {
	Type string
	ID   string
}

// AuthzService decides whether a principal may perform an action on a
// resource. Decisions are default-deny: explicit deny delegations are
// checked first, then ownership, then allow delegations scoped to the
// resource or any ancestor in its chain. Nothing is cached; ownership and
// delegations are re-read per call so reassignment takes effect on the very
// next decision. The service keeps no mutable state and is safe for
// concurrent use.
type AuthzService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewAuthzService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, mx *metrics.Metrics) *AuthzService {
	return &AuthzService{db: db, repomanager: m, logger: logger, metrics: mx}
}

// Authorize returns nil when principal may perform action on resource,
// common.ErrorForbidden when the policy denies it, and common.ErrorNotFound
// when the resource does not exist.
func (s *AuthzService) Authorize(ctx context.Context, principal *auth.Principal, resource Resource, action string) error {
	if principal == nil {
		return common.ErrorUnauthorized
	}

	err := s.decide(ctx, principal.UserID, resource, action)
	switch {
	case err == nil:
		s.metrics.AuthzDecisions.WithLabelValues("allow").Inc()
	case errors.Is(err, common.ErrorForbidden):
		s.metrics.AuthzDecisions.WithLabelValues("deny").Inc()
	case errors.Is(err, common.ErrorNotFound):
		s.metrics.AuthzDecisions.WithLabelValues("not_found").Inc()
	}

	return err
}

func (s *AuthzService) decide(ctx context.Context, userID string, resource Resource, action string) error {
	repo := s.repomanager.Ownership(s.db)

	scope, owned, ownerID, err := s.resolveScope(ctx, repo, resource)
	if err != nil {
		return err
	}

	rules, err := repo.ListDelegations(ctx, userID)
	if err != nil {
		return err
	}

	// deny rules always win, whatever ownership says
	if matchDelegations(rules, scope, action, models.EffectDeny) {
		return common.ErrorForbidden
	}

	if owned && ownerID == userID {
		return nil
	}

	// unowned reference data is readable by any authenticated principal;
	// mutating it still requires an explicit grant
	if !owned && action == ActionRead {
		return nil
	}

	if matchDelegations(rules, scope, action, models.EffectAllow) {
		return nil
	}

	return common.ErrorForbidden
}

// resolveScope expands a resource into its ownership chain, leaf first. The
// chain is what delegation rules are matched against: a grant on an
// institution covers every account and transaction under it.
func (s *AuthzService) resolveScope(ctx context.Context, repo ownership.Repository, resource Resource) (scope []Resource, owned bool, ownerID string, err error) {
	switch resource.Type {
	case ResourceUser:
		exists, err := repo.UserExists(ctx, resource.ID)
		if err != nil {
			return nil, false, "", err
		}
		if !exists {
			return nil, false, "", common.ErrorNotFound
		}
		// a user record is owned by itself
		return []Resource{resource}, true, resource.ID, nil

	case ResourceInstitution:
		exists, err := repo.InstitutionExists(ctx, resource.ID)
		if err != nil {
			return nil, false, "", err
		}
		if !exists {
			return nil, false, "", common.ErrorNotFound
		}
		return []Resource{resource}, false, "", nil

	case ResourceAsset:
		exists, err := repo.AssetExists(ctx, resource.ID)
		if err != nil {
			return nil, false, "", err
		}
		if !exists {
			return nil, false, "", common.ErrorNotFound
		}
		return []Resource{resource}, false, "", nil

	case ResourceAccount:
		owner, err := repo.AccountOwner(ctx, resource.ID)
		if err != nil {
			return nil, false, "", err
		}
		scope = []Resource{
			resource,
			{Type: ResourceInstitution, ID: owner.InstitutionID},
			{Type: ResourceUser, ID: owner.UserID},
		}
		return scope, true, owner.UserID, nil

	case ResourceTransaction:
		owner, err := repo.TransactionOwner(ctx, resource.ID)
		if err != nil {
			return nil, false, "", err
		}
		scope = []Resource{
			resource,
			{Type: ResourceAccount, ID: owner.AccountID},
			{Type: ResourceInstitution, ID: owner.InstitutionID},
			{Type: ResourceUser, ID: owner.UserID},
		}
		return scope, true, owner.UserID, nil

	default:
		return nil, false, "", common.ErrorNotFound
	}
}

func matchDelegations(rules []*models.Delegation, scope []Resource, action string, effect models.DelegationEffect) bool {
	for _, rule := range rules {
		if rule.Effect != effect || rule.Action != action {
			continue
		}
		for _, node := range scope {
			if rule.ResourceType == node.Type && rule.ResourceID == node.ID {
				return true
			}
		}
	}
	return false
}
