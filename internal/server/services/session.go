package services

import (
	"context"
	"errors"

	"github.com/centavo-app/centavo/internal/common"
	"github.com/centavo-app/centavo/internal/logging"
	"github.com/centavo-app/centavo/internal/server/auth"
	"github.com/centavo-app/centavo/internal/server/cursor"
	"github.com/centavo-app/centavo/internal/server/metrics"
)

// Request is the access-control envelope of one inbound operation. The
// caller (transport layer) fills it in from whatever carrier it uses for
// tokens; the orchestrator does not care where they came from.
type Request struct {
	AccessToken  string
	RefreshToken string // optional; enables silent refresh on expiry
	CsrfToken    string // required when Mutating
	Mutating     bool

	Resource Resource
	Action   string

	// Cursor is the inbound pagination cursor for list operations; Paginated
	// distinguishes "no cursor supplied" (first page) from "not a list".
	Paginated bool
	Cursor    string

	// LeakExistence lets the caller see ErrorNotFound instead of the default
	// collapse to ErrorForbidden for resources the principal cannot touch.
	LeakExistence bool
}

// Result is what a passing request gets back: who the caller is, a rotated
// token pair when a silent refresh happened, and the decoded page state for
// list operations.
type Result struct {
	Principal *auth.Principal
	Rotated   *TokenPair
	Page      cursor.PageState
}

// SessionService runs the per-request access-control pipeline:
// authenticate, burn the CSRF token for mutations, authorize against the
// ownership policy, then decode the pagination cursor. Each stage
// short-circuits with its own error; later stages never run after a
// failure. CSRF consumption deliberately happens before authorization, so a
// token is spent even when the request then fails.
type SessionService struct {
	tokens  *TokenService
	csrf    *CsrfService
	authz   *AuthzService
	codec   *cursor.Codec
	logger  logging.Logger
	metrics *metrics.Metrics
}

func NewSessionService(tokens *TokenService, csrf *CsrfService, authz *AuthzService, codec *cursor.Codec, logger logging.Logger, mx *metrics.Metrics) *SessionService {
	return &SessionService{tokens: tokens, csrf: csrf, authz: authz, codec: codec, logger: logger, metrics: mx}
}

// Authenticate verifies the access token. When it is expired and a refresh
// token is present, the pair is silently rotated and returned alongside the
// principal; every other failure is terminal.
func (s *SessionService) Authenticate(ctx context.Context, accessToken, refreshToken string) (*auth.Principal, *TokenPair, error) {
	principal, err := s.tokens.VerifyAccess(ctx, accessToken)
	if err == nil {
		return principal, nil, nil
	}
	if !errors.Is(err, common.ErrTokenExpired) || refreshToken == "" {
		return nil, nil, common.ErrorUnauthorized
	}

	pair, err := s.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, nil, common.ErrorUnauthorized
	}

	principal, err = s.tokens.VerifyAccess(ctx, pair.AccessToken)
	if err != nil {
		return nil, nil, common.ErrorUnauthorized
	}

	return principal, pair, nil
}

// Run executes the pipeline for one request.
func (s *SessionService) Run(ctx context.Context, req Request) (*Result, error) {
	principal, rotated, err := s.Authenticate(ctx, req.AccessToken, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	if req.Mutating {
		if err := s.csrf.ValidateAndConsume(ctx, req.CsrfToken); err != nil {
			return nil, err
		}
	}

	if err := s.authz.Authorize(ctx, principal, req.Resource, req.Action); err != nil {
		if errors.Is(err, common.ErrorNotFound) && !req.LeakExistence {
			// don't reveal whether the resource exists
			return nil, common.ErrorForbidden
		}
		return nil, err
	}

	result := &Result{Principal: principal, Rotated: rotated}

	if req.Paginated {
		if req.Cursor == "" {
			result.Page = cursor.PageState{Limit: cursor.DefaultLimit}
		} else {
			state, err := s.codec.Decode(ctx, req.Cursor)
			if err != nil {
				if errors.Is(err, common.ErrKeyNotFound) || errors.Is(err, common.ErrCursorInvalid) {
					s.metrics.CursorsRejected.Inc()
					return nil, common.ErrCursorInvalid
				}
				return nil, err
			}
			result.Page = state
		}
	}

	return result, nil
}
