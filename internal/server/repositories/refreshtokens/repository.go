// Package refreshtokens declares the repository contract for refresh-token
// replay detection: one row per user holding the hash of the most recently
// issued refresh token.
package refreshtokens

import "context"

type Repository interface {
	// Upsert records tokenHash as the user's current refresh token,
	// replacing any previous one.
	Upsert(ctx context.Context, userID string, tokenHash string) error

	// GetHash returns the user's current refresh token hash, or
	// common.ErrorNotFound when the user has no outstanding refresh token.
	GetHash(ctx context.Context, userID string) (string, error)

	// Delete removes the user's refresh token record. Deleting a
	// non-existent record is not an error.
	Delete(ctx context.Context, userID string) error
}
