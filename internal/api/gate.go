package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rowanveldt/weathervane/internal/auth"
)

// apiKeyHeader is the request header carrying the caller's API key.
// The name is part of the upstream wire contract and must not change.
const apiKeyHeader = "apiKey"

// requireRoles builds the request gate middleware for one route.
//
// The allow-list is fixed at registration time, so router.go reads as the
// complete permission map. The gate authenticates the apiKey header, checks
// role membership, records the access on the account, and only then lets
// the handler run. The authenticated account is placed on the request
// context for handlers that need it.
func (s *Server) requireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			presented := r.Header.Get(apiKeyHeader)

			account, err := s.authorizer.Authenticate(ctx, presented, roles)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrUnauthenticated):
					writeUnauthorized(w, "missing or unknown API key")
				case errors.Is(err, auth.ErrForbidden):
					// ErrUnknownRole lands here too: a stored role that no
					// longer parses is a denial, not a server fault.
					if errors.Is(err, auth.ErrUnknownRole) {
						s.logger.Warn("account has unrecognised role",
							"path", r.URL.Path,
							"request_id", ctx.Value(ctxKeyRequestID),
						)
					}
					writeForbidden(w, "role not permitted for this operation")
				default:
					s.logger.Error("authorization failed", "error", err)
					writeInternalError(w, "authorization failed")
				}
				return
			}

			// Record the access before the handler runs. A failure here is
			// logged but does not fail the request: usage tracking must not
			// take the API down.
			if err := s.accounts.UpdateLastLogin(ctx, account.APIKey, time.Now()); err != nil {
				s.logger.Warn("failed to record account access",
					"account_id", account.ID,
					"error", err,
				)
			}

			next.ServeHTTP(w, r.WithContext(withAccount(ctx, account)))
		})
	}
}

// withAccount stores the authenticated account on the request context.
func withAccount(ctx context.Context, account *auth.Account) context.Context {
	return context.WithValue(ctx, ctxKeyAccount, account)
}

// accountFrom retrieves the authenticated account from the context.
// Returns nil on routes that did not pass through the gate.
func accountFrom(ctx context.Context) *auth.Account {
	account, _ := ctx.Value(ctxKeyAccount).(*auth.Account)
	return account
}
