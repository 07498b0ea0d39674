package models

import "time"

// CursorKey is one generation of the symmetric key used to seal pagination
// cursors. A key is active (usable for new encryptions) while ExpiresAt is
// nil or in the future; expired keys are retained for decryption until the
// retention window passes, then hard-deleted.
type CursorKey struct {
	ID        int32
	CreatedAt time.Time
	ExpiresAt *time.Time
	KeyData   []byte
}

// Active reports whether the key may encrypt new cursors at the given time.
func (k *CursorKey) Active(now time.Time) bool {
	return k.ExpiresAt == nil || k.ExpiresAt.After(now)
}
