package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/server/config"
)

func csrfFixture(t *testing.T, store *memStore, ttl time.Duration) *CsrfService {
	t.Helper()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{CsrfTokenTTL: ttl}
	return NewCsrfService(db, &memRepoManager{store}, cfg, testLogger(), testMetrics())
}

func TestCsrfService_IssueAndConsume(t *testing.T) {
	svc := csrfFixture(t, newMemStore(), time.Minute)

	token, err := svc.Issue(context.Background())
	require.NoError(t, err)
	assert.Len(t, token, 2*csrfTokenSize) // hex-encoded

	require.NoError(t, svc.ValidateAndConsume(context.Background(), token))

	// a token is single-use
	err = svc.ValidateAndConsume(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrCsrfTokenNotFound)
}

func TestCsrfService_Consume_UnknownToken(t *testing.T) {
	svc := csrfFixture(t, newMemStore(), time.Minute)

	err := svc.ValidateAndConsume(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, common.ErrCsrfTokenNotFound)
}

func TestCsrfService_Consume_ExpiredToken(t *testing.T) {
	svc := csrfFixture(t, newMemStore(), -time.Minute)

	token, err := svc.Issue(context.Background())
	require.NoError(t, err)

	err = svc.ValidateAndConsume(context.Background(), token)
	assert.ErrorIs(t, err, common.ErrCsrfTokenNotFound)
}

func TestCsrfService_Consume_ConcurrentSingleWinner(t *testing.T) {
	svc := csrfFixture(t, newMemStore(), time.Minute)

	token, err := svc.Issue(context.Background())
	require.NoError(t, err)

	const workers = 16

	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if svc.ValidateAndConsume(context.Background(), token) == nil {
				wins.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestCsrfService_PurgeExpired(t *testing.T) {
	store := newMemStore()
	svc := csrfFixture(t, store, -time.Minute)

	_, err := svc.Issue(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.PurgeExpired(context.Background()))
	assert.Empty(t, store.csrf)
}
