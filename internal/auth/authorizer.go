package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Authorizer resolves a presented API key to an account and checks the
// account's role against an operation's allow-list.
//
// Authenticate is deliberately side-effect free: it never touches the
// account's last-login timestamp. Recording usage is a separate, explicit
// repository call made by the request gate only after the request is
// accepted for processing. This keeps failed authorizations from mutating
// anything, and lets read-only introspection skip usage recording entirely.
//
// Thread Safety: safe for concurrent use; all state lives in the store.
type Authorizer struct {
	accounts AccountRepository
}

// NewAuthorizer creates an Authorizer over the given account repository.
func NewAuthorizer(accounts AccountRepository) *Authorizer {
	return &Authorizer{accounts: accounts}
}

// Authenticate validates a presented API key against an allow-list of roles.
//
// The key may arrive wrapped in braces ("{...}"); some client credential
// stores serialise GUIDs that way, and the wrapping is stripped before
// lookup.
//
// Outcomes:
//   - ErrUnauthenticated: empty key after stripping, or no account holds it
//   - ErrUnknownRole: the account's stored role doesn't decode; satisfies
//     errors.Is(err, ErrForbidden), so gates treat it as a deny
//   - ErrForbidden: the role decodes but is not in allowedRoles (an empty
//     allow-list denies everything)
//
// On success the matched account is returned unmodified.
func (a *Authorizer) Authenticate(ctx context.Context, presentedKey string, allowedRoles []Role) (*Account, error) {
	key := StripKey(presentedKey)
	if key == "" {
		return nil, ErrUnauthenticated
	}

	account, err := a.accounts.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolving api key: %w", err)
	}

	role, err := ParseRole(string(account.Role))
	if err != nil {
		// Unrecognised stored role: an authorization failure, not a missing
		// credential. The sentinel stays distinguishable for logging.
		return nil, err
	}

	for _, allowed := range allowedRoles {
		if role == allowed {
			return account, nil
		}
	}

	return nil, ErrForbidden
}

// StripKey removes any brace wrapping from a presented API key.
func StripKey(presentedKey string) string {
	return strings.Trim(presentedKey, "{}")
}
