// Package csrftokens declares the repository contract for single-use
// anti-forgery tokens.
package csrftokens

import (
	"context"
	"time"
)

// Repository persists CSRF tokens. Consume must be a single atomic
// check-and-delete so concurrent attempts on the same token produce exactly
// one winner.
type Repository interface {
	// Create stores a freshly issued token with its expiry.
	Create(ctx context.Context, token string, expiresAt time.Time) error

	// Consume atomically deletes the token if it exists and has not expired.
	// Returns common.ErrorNotFound when the token is absent, already
	// consumed, or expired.
	Consume(ctx context.Context, token string, now time.Time) error

	// DeleteExpired removes expired tokens and returns the number deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
