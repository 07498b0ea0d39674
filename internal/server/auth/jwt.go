// Package auth implements signing and verification of the compact session
// tokens (HS256 JWTs). It is deliberately unaware of secret generations:
// callers supply one secret per call and iterate over retained generations
// themselves.
package auth

import (
	"errors"
	"time"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is the payload of a short-lived access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// RefreshClaims is the payload of a refresh token. Generation records which
// signing generation issued it, so replay detection can reason about
// rotation order.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID     string `json:"uid"`
	Generation int32  `json:"gen"`
}

// Principal is the authenticated identity reconstructed from a verified
// token. It is ephemeral; nothing about it is persisted server-side.
type Principal struct {
	UserID     string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Generation int32
}

// GenerateAccessToken signs an access token for userID valid for ttl.
func GenerateAccessToken(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	})

	return token.SignedString(secret)
}

// GenerateRefreshToken signs a refresh token for userID valid for ttl,
// stamped with the issuing generation. The jti claim makes every token
// unique even within one clock second, so replay detection can always tell
// two issuances apart.
func GenerateRefreshToken(userID string, generation int32, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:     userID,
		Generation: generation,
	})

	return token.SignedString(secret)
}

// ParseAccessToken verifies tokenString against secret and returns the
// principal. Failures are mapped onto the sentinel taxonomy:
// common.ErrTokenExpired (signature valid, past exp),
// common.ErrInvalidSignature (secret did not verify), and
// common.ErrInvalidToken (not a parsable token at all).
func ParseAccessToken(tokenString string, secret []byte) (*Principal, error) {
	claims := &AccessClaims{}
	if err := parseWithClaims(tokenString, claims, secret); err != nil {
		return nil, err
	}

	return principalFromClaims(claims.UserID, claims.RegisteredClaims, 0)
}

// ParseRefreshToken verifies a refresh token; error mapping matches
// ParseAccessToken.
func ParseRefreshToken(tokenString string, secret []byte) (*Principal, error) {
	claims := &RefreshClaims{}
	if err := parseWithClaims(tokenString, claims, secret); err != nil {
		return nil, err
	}

	return principalFromClaims(claims.UserID, claims.RegisteredClaims, claims.Generation)
}

func parseWithClaims(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			// signature verified; only the exp claim failed
			return common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return common.ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return common.ErrInvalidToken
		default:
			return common.ErrInvalidToken
		}
	}
	if !token.Valid {
		return common.ErrInvalidToken
	}

	return nil
}

func principalFromClaims(userID string, rc jwt.RegisteredClaims, generation int32) (*Principal, error) {
	if userID == "" || rc.IssuedAt == nil || rc.ExpiresAt == nil {
		return nil, common.ErrInvalidToken
	}

	return &Principal{
		UserID:     userID,
		IssuedAt:   rc.IssuedAt.Time,
		ExpiresAt:  rc.ExpiresAt.Time,
		Generation: generation,
	}, nil
}
