package auth

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// accountIDPattern defines the shape of generated account identifiers.
var accountIDPattern = regexp.MustCompile(`^acc-[0-9a-f]{8}$`)

// IsValidAccountID reports whether id is a well-formed account identifier.
// Malformed identifiers are treated as "not found" by lookups, never as a
// query against the store.
func IsValidAccountID(id string) bool {
	return accountIDPattern.MatchString(id)
}

// Role classifies an account and governs which operations it may invoke.
// Membership checks are exact-match: there is no hierarchy between roles.
type Role string

const (
	// RoleStudent may read sensor data.
	RoleStudent Role = "STUDENT"

	// RoleTeacher may read and write sensor data and manage accounts.
	RoleTeacher Role = "TEACHER"

	// RoleSensor is a station identity that may only submit readings.
	RoleSensor Role = "SENSOR"
)

// ValidRoles is the closed set of recognised roles.
var ValidRoles = []Role{RoleStudent, RoleTeacher, RoleSensor}

// ParseRole decodes a stored role string into the closed Role set.
// The match is exact and case-sensitive: roles are stored upper-case and
// anything else is an unknown role, not a loose spelling.
//
// Returns:
//   - Role: The decoded role on success
//   - error: ErrUnknownRole if the value is not a recognised role
func ParseRole(s string) (Role, error) {
	for _, r := range ValidRoles {
		if Role(s) == r {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Account represents an API consumer: a person (student, teacher) or a
// sensor station. The API key is the sole credential; it is generated at
// creation time and never changes.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	// Password is stored as supplied and is never verified anywhere in the
	// current system. This mirrors the upstream data contract; see DESIGN.md
	// before "fixing" it.
	Password  string    `json:"password"`
	Role      Role      `json:"role"`
	Email     string    `json:"email,omitempty"`
	LastLogin time.Time `json:"last_login"`
	APIKey    string    `json:"api_key"`
}

// NewAPIKey generates a fresh opaque API key for a new account.
func NewAPIKey() string {
	return uuid.NewString()
}

// Sentinel errors for authentication and account operations.
var (
	// ErrUnauthenticated means no usable credential was presented, or the
	// presented key matches no account.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the credential is valid but the account's role is
	// not in the operation's allow-list.
	ErrForbidden = errors.New("insufficient role")

	// ErrAccountNotFound is returned by account lookups that match nothing.
	ErrAccountNotFound = errors.New("account not found")

	// ErrUsernameExists is returned when creating an account with a
	// username that is already taken.
	ErrUsernameExists = errors.New("username already exists")
)

// ErrUnknownRole means an account's stored role failed to decode into the
// closed Role set. It wraps ErrForbidden so the authorization decision point
// collapses it to a deny, while logs and tests can still tell the two apart.
var ErrUnknownRole = fmt.Errorf("%w: unknown role", ErrForbidden)
