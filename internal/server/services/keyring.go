// Package services contains server-side business logic: the keyring and
// signing-secret lifecycles, CSRF token registry, the authorization policy
// engine, and the per-request session orchestration built on top of them.
package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/dbx"
	"github.com/centavo-app/centavo/internal/logging"
	"github.com/centavo-app/centavo/internal/server/config"
	"github.com/centavo-app/centavo/internal/server/metrics"
	"github.com/centavo-app/centavo/internal/server/models"
	"github.com/centavo-app/centavo/internal/server/repositories/repomanager"
)

const cursorKeySize = 32

// KeyringService manages the rotating symmetric keys that seal pagination
// cursors. Keys are append-only. The active key is cached in-process for a
// short TTL, which must stay well below the rotation grace period so a
// cursor sealed with a cached key never outlives its key's decryptability.
type KeyringService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	metrics     *metrics.Metrics

	keyTTL    time.Duration // expiry stamped on the outgoing key at rotation
	cacheTTL  time.Duration
	retention time.Duration // how long expired keys stay decryptable

	mu       sync.Mutex
	cached   *models.CursorKey
	cachedAt time.Time
}

func NewKeyringService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, mx *metrics.Metrics) *KeyringService {
	return &KeyringService{
		db:          db,
		repomanager: m,
		logger:      logger,
		metrics:     mx,
		keyTTL:      cfg.CursorKeyTTL,
		cacheTTL:    cfg.CursorKeyCacheTTL,
		retention:   cfg.CursorKeyRetention,
	}
}

// Current returns the newest active key, creating the first one when the
// table is empty.
func (s *KeyringService) Current(ctx context.Context) (*models.CursorKey, error) {
	now := time.Now()

	s.mu.Lock()
	if s.cached != nil && now.Sub(s.cachedAt) < s.cacheTTL && s.cached.Active(now) {
		key := s.cached
		s.mu.Unlock()
		return key, nil
	}
	s.mu.Unlock()

	repo := s.repomanager.CursorKeys(s.db)
	key, err := repo.Active(ctx, now)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		key, err = repo.Create(ctx, common.GenerateRandByteArray(cursorKeySize), nil)
		if err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "created initial cursor key", "key_id", key.ID)
	}

	s.mu.Lock()
	s.cached = key
	s.cachedAt = now
	s.mu.Unlock()

	return key, nil
}

// ByID returns a key for decryption regardless of its expiry. A key past
// hard deletion yields common.ErrKeyNotFound, which callers treat as
// "cursor invalid", not as a fatal condition.
func (s *KeyringService) ByID(ctx context.Context, id int32) (*models.CursorKey, error) {
	s.mu.Lock()
	if s.cached != nil && s.cached.ID == id {
		key := s.cached
		s.mu.Unlock()
		return key, nil
	}
	s.mu.Unlock()

	key, err := s.repomanager.CursorKeys(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrKeyNotFound
		}
		return nil, err
	}

	return key, nil
}

// Rotate inserts a fresh key and stamps the previous active key with an
// expiry keyTTL from now, inside one transaction. The outgoing key keeps
// decrypting in-flight cursors until the stamp passes; readers that still
// hold it cached keep encrypting under it for at most cacheTTL, which is
// fine because both keys verify during the grace window.
func (s *KeyringService) Rotate(ctx context.Context) error {
	now := time.Now()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.CursorKeys(tx)

		prev, err := repo.Active(ctx, now)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		if prev != nil {
			if err := repo.Expire(ctx, prev.ID, now.Add(s.keyTTL)); err != nil {
				return err
			}
		}

		_, err = repo.Create(ctx, common.GenerateRandByteArray(cursorKeySize), nil)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate()
	s.metrics.KeyRotations.Inc()
	s.logger.Info(ctx, "rotated cursor key")

	return nil
}

// PurgeExpired hard-deletes keys whose expiry predates the retention
// window. After this no cursor sealed under them can decode.
func (s *KeyringService) PurgeExpired(ctx context.Context) error {
	cutoff := time.Now().Add(-s.retention)

	n, err := s.repomanager.CursorKeys(s.db).DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info(ctx, "purged expired cursor keys", "count", n)
	}

	return nil
}

func (s *KeyringService) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.cachedAt = time.Time{}
	s.mu.Unlock()
}
