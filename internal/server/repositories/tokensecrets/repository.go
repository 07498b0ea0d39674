// Package tokensecrets declares the repository contract for JWT signing
// generations.
package tokensecrets

import (
	"context"

	"github.com/centavo-app/centavo/internal/server/models"
)

// Repository persists signing-secret generations. Rows are append-only;
// "current" is always the newest row by creation time.
type Repository interface {
	// ListRetained returns every generation still valid for verification,
	// newest first. An empty slice means the store was never bootstrapped.
	ListRetained(ctx context.Context) ([]*models.TokenSecret, error)

	// Create appends a new generation.
	Create(ctx context.Context, accessSecret, refreshSecret []byte) (*models.TokenSecret, error)

	// DeleteAllButLatest retires every generation except the newest one and
	// returns the number of removed rows. Used by operator-triggered full
	// revocation.
	DeleteAllButLatest(ctx context.Context) (int64, error)
}
