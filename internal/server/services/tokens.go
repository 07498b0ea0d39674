package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/cryptox"
	"github.com/centavo-app/centavo/internal/dbx"
	"github.com/centavo-app/centavo/internal/logging"
	"github.com/centavo-app/centavo/internal/server/auth"
	"github.com/centavo-app/centavo/internal/server/config"
	"github.com/centavo-app/centavo/internal/server/metrics"
	"github.com/centavo-app/centavo/internal/server/models"
	"github.com/centavo-app/centavo/internal/server/repositories/repomanager"
)

const signingSecretSize = 32

// TokenPair is an issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService issues and verifies the signed session tokens. Signing
// material lives in the token_secrets table as append-only generations: the
// newest generation signs, every retained generation verifies. Generations
// are cached in-process with a TTL so verification does not hit the
// database on each request; the cache TTL bounds how long a freshly
// rotated-in generation may be unknown to a replica.
type TokenService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	metrics     *metrics.Metrics

	accessTTL       time.Duration
	refreshTTL      time.Duration
	cacheTTL        time.Duration
	replayDetection bool

	mu       sync.Mutex
	cached   []*models.TokenSecret
	cachedAt time.Time
}

func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, mx *metrics.Metrics) *TokenService {
	return &TokenService{
		db:              db,
		repomanager:     m,
		logger:          logger,
		metrics:         mx,
		accessTTL:       cfg.AccessTokenTTL,
		refreshTTL:      cfg.RefreshTokenTTL,
		cacheTTL:        cfg.TokenSecretCacheTTL,
		replayDetection: cfg.RefreshReplayDetection,
	}
}

// generations returns retained secret generations newest-first, creating the
// first generation when the table is empty.
func (s *TokenService) generations(ctx context.Context) ([]*models.TokenSecret, error) {
	now := time.Now()

	s.mu.Lock()
	if s.cached != nil && now.Sub(s.cachedAt) < s.cacheTTL {
		gens := s.cached
		s.mu.Unlock()
		return gens, nil
	}
	s.mu.Unlock()

	repo := s.repomanager.TokenSecrets(s.db)
	gens, err := repo.ListRetained(ctx)
	if err != nil {
		return nil, err
	}
	if len(gens) == 0 {
		secret, err := repo.Create(ctx,
			common.GenerateRandByteArray(signingSecretSize),
			common.GenerateRandByteArray(signingSecretSize))
		if err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "bootstrapped signing secrets", "generation", secret.ID)
		gens = []*models.TokenSecret{secret}
	}

	s.mu.Lock()
	s.cached = gens
	s.cachedAt = now
	s.mu.Unlock()

	return gens, nil
}

// Issue signs a fresh token pair for userID under the newest generation and,
// when replay detection is on, records the refresh token hash as the user's
// only valid one.
func (s *TokenService) Issue(ctx context.Context, userID string) (*TokenPair, error) {
	gens, err := s.generations(ctx)
	if err != nil {
		return nil, err
	}
	current := gens[0]

	access, err := auth.GenerateAccessToken(userID, current.AccessSecret, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(userID, current.ID, current.RefreshSecret, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	if s.replayDetection {
		err = s.repomanager.RefreshTokens(s.db).Upsert(ctx, userID, cryptox.HashTokenHex(refresh))
		if err != nil {
			return nil, err
		}
	}

	s.metrics.TokensIssued.Inc()

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess validates an access token against every retained generation,
// newest first, and returns the principal it names.
//
// An expired result means the signature verified under that generation, so
// the search stops there. A signature mismatch moves on to the next
// generation; a malformed token can never verify and fails immediately.
func (s *TokenService) VerifyAccess(ctx context.Context, token string) (*auth.Principal, error) {
	gens, err := s.generations(ctx)
	if err != nil {
		return nil, err
	}

	for _, gen := range gens {
		principal, err := auth.ParseAccessToken(token, gen.AccessSecret)
		switch {
		case err == nil:
			return principal, nil
		case errors.Is(err, common.ErrTokenExpired):
			s.metrics.AuthFailures.WithLabelValues("expired").Inc()
			return nil, err
		case errors.Is(err, common.ErrInvalidSignature):
			continue
		default:
			s.metrics.AuthFailures.WithLabelValues("malformed").Inc()
			return nil, err
		}
	}

	s.metrics.AuthFailures.WithLabelValues("signature").Inc()
	return nil, common.ErrInvalidSignature
}

// verifyRefresh is VerifyAccess for refresh tokens; an expired refresh token
// maps to common.ErrRefreshTokenExpired so callers can tell the two apart.
func (s *TokenService) verifyRefresh(ctx context.Context, token string) (*auth.Principal, error) {
	gens, err := s.generations(ctx)
	if err != nil {
		return nil, err
	}

	for _, gen := range gens {
		principal, err := auth.ParseRefreshToken(token, gen.RefreshSecret)
		switch {
		case err == nil:
			return principal, nil
		case errors.Is(err, common.ErrTokenExpired):
			s.metrics.AuthFailures.WithLabelValues("refresh_expired").Inc()
			return nil, common.ErrRefreshTokenExpired
		case errors.Is(err, common.ErrInvalidSignature):
			continue
		default:
			s.metrics.AuthFailures.WithLabelValues("malformed").Inc()
			return nil, err
		}
	}

	s.metrics.AuthFailures.WithLabelValues("signature").Inc()
	return nil, common.ErrInvalidSignature
}

// Refresh exchanges a valid refresh token for a new pair. With replay
// detection on, only the most recently issued refresh token for the user is
// accepted; presenting an older one yields common.ErrTokenSuperseded. The
// hash check and the new pair's hash write commit in one transaction, so
// two concurrent refreshes cannot both succeed.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	principal, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if !s.replayDetection {
		return s.Issue(ctx, principal.UserID)
	}

	gens, err := s.generations(ctx)
	if err != nil {
		return nil, err
	}
	current := gens[0]

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.RefreshTokens(tx)

		storedHash, err := repo.GetHash(ctx, principal.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrTokenSuperseded
			}
			return err
		}
		if storedHash != cryptox.HashTokenHex(refreshToken) {
			return common.ErrTokenSuperseded
		}

		access, err := auth.GenerateAccessToken(principal.UserID, current.AccessSecret, s.accessTTL)
		if err != nil {
			return err
		}
		refresh, err := auth.GenerateRefreshToken(principal.UserID, current.ID, current.RefreshSecret, s.refreshTTL)
		if err != nil {
			return err
		}
		if err := repo.Upsert(ctx, principal.UserID, cryptox.HashTokenHex(refresh)); err != nil {
			return err
		}

		pair = &TokenPair{AccessToken: access, RefreshToken: refresh}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrTokenSuperseded) {
			s.metrics.AuthFailures.WithLabelValues("superseded").Inc()
		}
		return nil, err
	}

	s.metrics.TokensIssued.Inc()

	return pair, nil
}

// RotateSecrets appends a new signing generation. Outstanding tokens signed
// by earlier generations keep verifying; only newly issued tokens use the
// new material.
func (s *TokenService) RotateSecrets(ctx context.Context) error {
	_, err := s.repomanager.TokenSecrets(s.db).Create(ctx,
		common.GenerateRandByteArray(signingSecretSize),
		common.GenerateRandByteArray(signingSecretSize))
	if err != nil {
		return err
	}

	s.invalidate()
	s.metrics.SecretRotations.Inc()
	s.logger.Info(ctx, "rotated signing secrets")

	return nil
}

// RevokeOldGenerations retires every generation but the newest, which
// invalidates all tokens signed under retired generations at once.
func (s *TokenService) RevokeOldGenerations(ctx context.Context) (int64, error) {
	n, err := s.repomanager.TokenSecrets(s.db).DeleteAllButLatest(ctx)
	if err != nil {
		return 0, err
	}

	s.invalidate()
	if n > 0 {
		s.logger.Info(ctx, "revoked old signing generations", "count", n)
	}

	return n, nil
}

// Revoke invalidates the user's refresh token, forcing a full login once
// their access token expires. Only meaningful with replay detection on.
func (s *TokenService) Revoke(ctx context.Context, userID string) error {
	return s.repomanager.RefreshTokens(s.db).Delete(ctx, userID)
}

func (s *TokenService) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.cachedAt = time.Time{}
	s.mu.Unlock()
}
