package models

import "time"

// TokenSecret is one generation of JWT signing material. The newest row
// signs newly issued tokens; older rows remain valid for verification until
// an operator retires them. Rows are immutable once created.
type TokenSecret struct {
	ID            int32
	CreatedAt     time.Time
	AccessSecret  []byte
	RefreshSecret []byte
}
