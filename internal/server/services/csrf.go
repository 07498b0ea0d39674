package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/logging"
	"github.com/centavo-app/centavo/internal/server/config"
	"github.com/centavo-app/centavo/internal/server/metrics"
	"github.com/centavo-app/centavo/internal/server/repositories/repomanager"
)

const csrfTokenSize = 32

// CsrfService issues and consumes single-use anti-forgery tokens. A token is
// an opaque random string backed by a database row; consuming it deletes the
// row atomically, so under concurrent submission exactly one consumer wins.
type CsrfService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	metrics     *metrics.Metrics

	ttl time.Duration
}

func NewCsrfService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, mx *metrics.Metrics) *CsrfService {
	return &CsrfService{
		db:          db,
		repomanager: m,
		logger:      logger,
		metrics:     mx,
		ttl:         cfg.CsrfTokenTTL,
	}
}

// Issue mints a fresh token valid for the configured TTL.
func (s *CsrfService) Issue(ctx context.Context) (string, error) {
	token, err := common.MakeRandHexString(csrfTokenSize)
	if err != nil {
		return "", err
	}

	err = s.repomanager.CsrfTokens(s.db).Create(ctx, token, time.Now().Add(s.ttl))
	if err != nil {
		return "", err
	}

	return token, nil
}

// ValidateAndConsume spends the token. Absent, expired, and already-consumed
// tokens are indistinguishable to the caller: all yield
// common.ErrCsrfTokenNotFound.
func (s *CsrfService) ValidateAndConsume(ctx context.Context, token string) error {
	err := s.repomanager.CsrfTokens(s.db).Consume(ctx, token, time.Now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.CsrfConsumed.WithLabelValues("rejected").Inc()
			return common.ErrCsrfTokenNotFound
		}
		return err
	}

	s.metrics.CsrfConsumed.WithLabelValues("accepted").Inc()
	return nil
}

// PurgeExpired removes expired rows; consumption already rejects them, this
// just keeps the table small.
func (s *CsrfService) PurgeExpired(ctx context.Context) error {
	n, err := s.repomanager.CsrfTokens(s.db).DeleteExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info(ctx, "purged expired csrf tokens", "count", n)
	}

	return nil
}
