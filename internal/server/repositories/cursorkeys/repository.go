// Package cursorkeys declares the repository contract for the rotating
// symmetric keys that seal pagination cursors.
package cursorkeys

import (
	"context"
	"time"

	"github.com/centavo-app/centavo/internal/server/models"
)

// Repository persists cursor key generations. Keys are append-only: rotation
// stamps an expiry on the previous key instead of mutating or deleting it,
// so cursors sealed under an older key keep decrypting until retention ends.
type Repository interface {
	// Active returns the newest key that is still valid for new encryptions
	// at the given time, or common.ErrorNotFound when none exists.
	Active(ctx context.Context, now time.Time) (*models.CursorKey, error)

	// GetByID returns a key by id regardless of its expiry, for decrypting
	// in-flight cursors. Unknown ids yield common.ErrorNotFound.
	GetByID(ctx context.Context, id int32) (*models.CursorKey, error)

	// Create inserts a new key. A nil expiresAt means the key stays active
	// until a later rotation stamps it.
	Create(ctx context.Context, keyData []byte, expiresAt *time.Time) (*models.CursorKey, error)

	// Expire stamps the key's expires_at so it stops encrypting new cursors
	// while remaining available for decryption.
	Expire(ctx context.Context, id int32, at time.Time) error

	// DeleteExpiredBefore hard-deletes keys whose expiry predates cutoff and
	// returns the number of removed rows.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
