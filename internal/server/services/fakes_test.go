package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/dbx"
	"github.com/centavo-app/centavo/internal/logging"
	"github.com/centavo-app/centavo/internal/server/metrics"
	"github.com/centavo-app/centavo/internal/server/models"
	"github.com/centavo-app/centavo/internal/server/repositories/csrftokens"
	"github.com/centavo-app/centavo/internal/server/repositories/cursorkeys"
	"github.com/centavo-app/centavo/internal/server/repositories/ownership"
	"github.com/centavo-app/centavo/internal/server/repositories/refreshtokens"
	"github.com/centavo-app/centavo/internal/server/repositories/tokensecrets"
	"github.com/centavo-app/centavo/internal/server/repositories/users"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// memStore backs the in-memory repositories below. The service layer talks
// to repositories through interfaces, so tests can run the real business
// logic against these without a database; transactional helpers still need
// a sqlmock handle for Begin/Commit.
type memStore struct {
	mu sync.Mutex

	cursorKeys   []*models.CursorKey
	nextKeyID    int32
	tokenSecrets []*models.TokenSecret
	nextSecretID int32
	csrf         map[string]time.Time
	refreshHash  map[string]string
	users        map[string]*models.User

	owners       map[string]*ownership.Owner // accountID → owner
	transactions map[string]string           // transactionID → accountID
	userIDs      map[string]bool
	institutions map[string]bool
	assets       map[string]bool
	delegations  []*models.Delegation
}

func newMemStore() *memStore {
	return &memStore{
		nextKeyID:    1,
		nextSecretID: 1,
		csrf:         make(map[string]time.Time),
		refreshHash:  make(map[string]string),
		users:        make(map[string]*models.User),
		owners:       make(map[string]*ownership.Owner),
		transactions: make(map[string]string),
		userIDs:      make(map[string]bool),
		institutions: make(map[string]bool),
		assets:       make(map[string]bool),
	}
}

// memRepoManager hands out repositories bound to the shared store; the db
// handle is ignored.
type memRepoManager struct{ store *memStore }

func (m *memRepoManager) CursorKeys(dbx.DBTX) cursorkeys.Repository { return &memCursorKeys{m.store} }
func (m *memRepoManager) TokenSecrets(dbx.DBTX) tokensecrets.Repository {
	return &memTokenSecrets{m.store}
}
func (m *memRepoManager) CsrfTokens(dbx.DBTX) csrftokens.Repository { return &memCsrfTokens{m.store} }
func (m *memRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return &memRefreshTokens{m.store}
}
func (m *memRepoManager) Users(dbx.DBTX) users.Repository              { return &memUsers{m.store} }
func (m *memRepoManager) Ownership(dbx.DBTX) ownership.Repository      { return &memOwnership{m.store} }
func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

type memCursorKeys struct{ s *memStore }

func (r *memCursorKeys) Active(_ context.Context, now time.Time) (*models.CursorKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.cursorKeys) - 1; i >= 0; i-- {
		if r.s.cursorKeys[i].Active(now) {
			return r.s.cursorKeys[i], nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memCursorKeys) GetByID(_ context.Context, id int32) (*models.CursorKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, k := range r.s.cursorKeys {
		if k.ID == id {
			return k, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memCursorKeys) Create(_ context.Context, keyData []byte, expiresAt *time.Time) (*models.CursorKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := &models.CursorKey{ID: r.s.nextKeyID, CreatedAt: time.Now(), ExpiresAt: expiresAt, KeyData: keyData}
	r.s.nextKeyID++
	r.s.cursorKeys = append(r.s.cursorKeys, key)
	return key, nil
}

func (r *memCursorKeys) Expire(_ context.Context, id int32, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, k := range r.s.cursorKeys {
		if k.ID == id {
			k.ExpiresAt = &at
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r *memCursorKeys) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var kept []*models.CursorKey
	var n int64
	for _, k := range r.s.cursorKeys {
		if k.ExpiresAt != nil && k.ExpiresAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, k)
	}
	r.s.cursorKeys = kept
	return n, nil
}

type memTokenSecrets struct{ s *memStore }

func (r *memTokenSecrets) ListRetained(context.Context) ([]*models.TokenSecret, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.TokenSecret, len(r.s.tokenSecrets))
	copy(out, r.s.tokenSecrets)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memTokenSecrets) Create(_ context.Context, accessSecret, refreshSecret []byte) (*models.TokenSecret, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	secret := &models.TokenSecret{ID: r.s.nextSecretID, CreatedAt: time.Now(), AccessSecret: accessSecret, RefreshSecret: refreshSecret}
	r.s.nextSecretID++
	r.s.tokenSecrets = append(r.s.tokenSecrets, secret)
	return secret, nil
}

func (r *memTokenSecrets) DeleteAllButLatest(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.tokenSecrets) <= 1 {
		return 0, nil
	}
	latest := r.s.tokenSecrets[0]
	for _, s := range r.s.tokenSecrets {
		if s.ID > latest.ID {
			latest = s
		}
	}
	n := int64(len(r.s.tokenSecrets) - 1)
	r.s.tokenSecrets = []*models.TokenSecret{latest}
	return n, nil
}

type memCsrfTokens struct{ s *memStore }

func (r *memCsrfTokens) Create(_ context.Context, token string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.csrf[token] = expiresAt
	return nil
}

func (r *memCsrfTokens) Consume(_ context.Context, token string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	expiresAt, ok := r.s.csrf[token]
	if !ok || !expiresAt.After(now) {
		return common.ErrorNotFound
	}
	delete(r.s.csrf, token)
	return nil
}

func (r *memCsrfTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for token, expiresAt := range r.s.csrf {
		if !expiresAt.After(now) {
			delete(r.s.csrf, token)
			n++
		}
	}
	return n, nil
}

type memRefreshTokens struct{ s *memStore }

func (r *memRefreshTokens) Upsert(_ context.Context, userID, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.refreshHash[userID] = tokenHash
	return nil
}

func (r *memRefreshTokens) GetHash(_ context.Context, userID string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	hash, ok := r.s.refreshHash[userID]
	if !ok {
		return "", common.ErrorNotFound
	}
	return hash, nil
}

func (r *memRefreshTokens) Delete(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.refreshHash, userID)
	return nil
}

type memUsers struct{ s *memStore }

func (r *memUsers) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	created := *user
	if created.ID == "" {
		created.ID = "user-" + user.Username
	}
	created.CreatedAt = time.Now()
	r.s.users[created.Username] = &created
	return &created, nil
}

func (r *memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return user, nil
}

type memOwnership struct{ s *memStore }

func (r *memOwnership) AccountOwner(_ context.Context, accountID string) (*ownership.Owner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	owner, ok := r.s.owners[accountID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *owner
	return &out, nil
}

func (r *memOwnership) TransactionOwner(ctx context.Context, transactionID string) (*ownership.Owner, error) {
	r.s.mu.Lock()
	accountID, ok := r.s.transactions[transactionID]
	r.s.mu.Unlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.AccountOwner(ctx, accountID)
}

func (r *memOwnership) UserExists(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.userIDs[id], nil
}

func (r *memOwnership) InstitutionExists(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.institutions[id], nil
}

func (r *memOwnership) AssetExists(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.assets[id], nil
}

func (r *memOwnership) ListDelegations(_ context.Context, userID string) ([]*models.Delegation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Delegation
	for _, d := range r.s.delegations {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func testMetrics() *metrics.Metrics { return metrics.New() }
