package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/server/config"
)

func keyringFixture(t *testing.T, store *memStore) (*KeyringService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		CursorKeyTTL:       time.Hour,
		CursorKeyCacheTTL:  5 * time.Minute,
		CursorKeyRetention: 24 * time.Hour,
	}

	svc := NewKeyringService(db, &memRepoManager{store}, cfg, testLogger(), testMetrics())
	return svc, mock
}

func TestKeyringService_Current_CreatesFirstKey(t *testing.T) {
	store := newMemStore()
	svc, _ := keyringFixture(t, store)

	key, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), key.ID)
	assert.Len(t, key.KeyData, cursorKeySize)
	assert.Nil(t, key.ExpiresAt)

	// second call serves the cached key, no new row
	again, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, key.ID, again.ID)
	assert.Len(t, store.cursorKeys, 1)
}

func TestKeyringService_Rotate_GracePeriod(t *testing.T) {
	store := newMemStore()
	svc, mock := keyringFixture(t, store)

	first, err := svc.Current(context.Background())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, svc.Rotate(context.Background()))

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, current.ID)

	// the outgoing key is stamped but still retrievable for decryption
	old, err := svc.ByID(context.Background(), first.ID)
	require.NoError(t, err)
	require.NotNil(t, old.ExpiresAt)
	assert.True(t, old.ExpiresAt.After(time.Now()))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKeyringService_ByID_UnknownKey(t *testing.T) {
	store := newMemStore()
	svc, _ := keyringFixture(t, store)

	_, err := svc.ByID(context.Background(), 42)
	assert.ErrorIs(t, err, common.ErrKeyNotFound)
}

func TestKeyringService_PurgeExpired(t *testing.T) {
	store := newMemStore()
	svc, mock := keyringFixture(t, store)

	first, err := svc.Current(context.Background())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, svc.Rotate(context.Background()))

	// push the stamped expiry past the retention window
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, (&memCursorKeys{store}).Expire(context.Background(), first.ID, past))

	require.NoError(t, svc.PurgeExpired(context.Background()))

	_, err = svc.ByID(context.Background(), first.ID)
	assert.ErrorIs(t, err, common.ErrKeyNotFound)
}
