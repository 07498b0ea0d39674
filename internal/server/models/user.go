// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account holder. PasswordHash is the Argon2id key
// derived from the password and Salt; the plaintext is never stored.
type User struct {
	ID           string
	Username     string
	Salt         []byte
	PasswordHash []byte
	CreatedAt    time.Time
}
