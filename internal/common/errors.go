// Package common defines shared constants and sentinel errors used across
// the centavo service layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Auth token errors. ErrInvalidToken means the token could not be parsed
	// at all; ErrInvalidSignature means no retained signing generation
	// verified it; ErrTokenExpired means the signature verified but the token
	// is past its expiry.
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")

	// Refresh token lifecycle errors. ErrTokenSuperseded is returned when a
	// verified refresh token is no longer the newest one issued for its user.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrTokenSuperseded     = errors.New("refresh token superseded")

	// Pagination cursor errors. ErrKeyNotFound means the cursor references a
	// key that is no longer retained; ErrCursorInvalid covers every other
	// malformed or tampered cursor.
	ErrCursorInvalid = errors.New("invalid cursor")
	ErrKeyNotFound   = errors.New("cursor key not found")

	// CSRF errors. A missing token is indistinguishable from an already
	// consumed or expired one.
	ErrCsrfTokenNotFound = errors.New("csrf token not found")
)
