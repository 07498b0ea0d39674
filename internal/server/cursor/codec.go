// Package cursor implements opaque pagination cursors. A cursor is the page
// state sealed with AES-256-GCM under a rotating key and encoded as
// base64url(key_id:4 || nonce:12 || ciphertext+tag), so clients cannot read
// or forge pagination positions.
package cursor

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/cryptox"
	"github.com/centavo-app/centavo/internal/server/models"
)

// envelope layout: 4-byte big-endian key id, 12-byte nonce, then ciphertext.
const (
	keyIDSize  = 4
	headerSize = keyIDSize + cryptox.NonceSize
	// GCM tag alone is 16 bytes; anything shorter cannot be a cursor.
	minCursorSize = headerSize + 16
)

// PageState is the pagination position carried inside a cursor.
type PageState struct {
	Offset int64 `json:"o"`
	Limit  int64 `json:"l"`
	Desc   bool  `json:"d,omitempty"`
}

// KeySource supplies cursor keys: the active one for encoding and any
// retained one for decoding.
type KeySource interface {
	Current(ctx context.Context) (*models.CursorKey, error)
	ByID(ctx context.Context, id int32) (*models.CursorKey, error)
}

// Codec encodes and decodes opaque cursors. Safe for concurrent use.
type Codec struct {
	keys KeySource
}

func NewCodec(keys KeySource) *Codec {
	return &Codec{keys: keys}
}

// Encode seals state under the currently active key.
func (c *Codec) Encode(ctx context.Context, state PageState) (string, error) {
	key, err := c.keys.Current(ctx)
	if err != nil {
		return "", err
	}

	ciphertext, nonce, err := cryptox.EncryptPayload(state, key.KeyData)
	if err != nil {
		return "", err
	}

	packed := make([]byte, headerSize+len(ciphertext))
	binary.BigEndian.PutUint32(packed[:keyIDSize], uint32(key.ID))
	copy(packed[keyIDSize:headerSize], nonce)
	copy(packed[headerSize:], ciphertext)

	return base64.RawURLEncoding.EncodeToString(packed), nil
}

// Decode opens a cursor and returns its page state. It fails closed: any
// malformed, truncated, or tampered input yields common.ErrCursorInvalid; a
// cursor sealed under a key that is no longer retained yields
// common.ErrKeyNotFound. A corrupted cursor never decodes to a default page.
func (c *Codec) Decode(ctx context.Context, token string) (PageState, error) {
	packed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return PageState{}, common.ErrCursorInvalid
	}
	if len(packed) < minCursorSize {
		return PageState{}, common.ErrCursorInvalid
	}

	keyID := int32(binary.BigEndian.Uint32(packed[:keyIDSize]))
	key, err := c.keys.ByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrKeyNotFound) {
			return PageState{}, common.ErrKeyNotFound
		}
		return PageState{}, err
	}

	nonce := packed[keyIDSize:headerSize]
	ciphertext := packed[headerSize:]

	var state PageState
	if err := cryptox.DecryptPayload(ciphertext, nonce, key.KeyData, &state); err != nil {
		return PageState{}, common.ErrCursorInvalid
	}
	if state.Offset < 0 || state.Limit < 0 {
		return PageState{}, common.ErrCursorInvalid
	}

	return state, nil
}
