package cursor

import "context"

// DefaultLimit is the page size applied when a request does not specify one.
const DefaultLimit = 100

// Next returns the cursor for the page after the one that produced
// resultCount items, or "" when the page was empty (no further pages).
func (c *Codec) Next(ctx context.Context, state PageState, resultCount int) (string, error) {
	if resultCount == 0 {
		return "", nil
	}

	next := state
	next.Offset += int64(resultCount)

	return c.Encode(ctx, next)
}

// Prev returns the cursor for the page before state, or "" when state is
// already the first page.
func (c *Codec) Prev(ctx context.Context, state PageState) (string, error) {
	if state.Offset == 0 {
		return "", nil
	}

	limit := state.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	prev := state
	prev.Offset -= limit
	if prev.Offset < 0 {
		prev.Offset = 0
	}

	return c.Encode(ctx, prev)
}
