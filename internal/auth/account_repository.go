package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account persistence.
//
// Range parameters are inclusive on both bounds. The repository performs no
// validation of ranges or role values: callers validate at the boundary, and
// garbage in yields empty results or zero affected rows, not errors.
type AccountRepository interface {
	Insert(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByKey(ctx context.Context, apiKey string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	UpdateLastLogin(ctx context.Context, apiKey string, at time.Time) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByRoleAndLoginRange(ctx context.Context, role Role, start, end time.Time) (int64, error)
	UpdateRoleForLoginRange(ctx context.Context, start, end time.Time, newRole Role) (int64, error)
	Count(ctx context.Context) (int, error)
}

// SQLiteAccountRepository implements AccountRepository using SQLite.
type SQLiteAccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new SQLite-backed account repository.
func NewAccountRepository(db *sql.DB) *SQLiteAccountRepository {
	return &SQLiteAccountRepository{db: db}
}

// Insert persists a new account. The ID is generated if empty; the API key
// is the caller's responsibility (handlers generate it with NewAPIKey so the
// key can be returned to the creator exactly once). Last-login is set to the
// current time on insert.
//
// Returns ErrUsernameExists if the username is already taken.
func (r *SQLiteAccountRepository) Insert(ctx context.Context, account *Account) error {
	if account.ID == "" {
		account.ID = "acc-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Truncate(time.Second)
	account.LastLogin = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, username, password, role, email, api_key, last_login)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.Username, account.Password, string(account.Role),
		nullString(account.Email), account.APIKey, formatTime(now),
	)
	if err != nil {
		if isUsernameConflict(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("inserting account: %w", err)
	}

	return nil
}

// FindByID retrieves an account by its unique ID.
// A malformed ID is treated as not found and never reaches the store.
func (r *SQLiteAccountRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	if !IsValidAccountID(id) {
		return nil, ErrAccountNotFound
	}
	return r.getAccount(ctx,
		"SELECT id, username, password, role, email, api_key, last_login FROM accounts WHERE id = ?", id)
}

// FindByKey retrieves an account by exact API key match.
func (r *SQLiteAccountRepository) FindByKey(ctx context.Context, apiKey string) (*Account, error) {
	return r.getAccount(ctx,
		"SELECT id, username, password, role, email, api_key, last_login FROM accounts WHERE api_key = ?", apiKey)
}

// List returns all accounts ordered by username.
func (r *SQLiteAccountRepository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, username, password, role, email, api_key, last_login FROM accounts ORDER BY username ASC")
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		a, err := scanAccountFrom(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}

	return accounts, nil
}

// UpdateLastLogin sets the last-login timestamp on the account holding the
// given API key. This is a single targeted field update, not a
// read-modify-write, so concurrent authorizations of the same key cannot
// lose updates. A key that matches nothing is a silent no-op.
func (r *SQLiteAccountRepository) UpdateLastLogin(ctx context.Context, apiKey string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET last_login = ? WHERE api_key = ?",
		formatTime(at), apiKey,
	)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// DeleteByID removes an account by ID.
// Returns ErrAccountNotFound if the ID is malformed or matches nothing.
func (r *SQLiteAccountRepository) DeleteByID(ctx context.Context, id string) error {
	if !IsValidAccountID(id) {
		return ErrAccountNotFound
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// DeleteByRoleAndLoginRange removes every account with the given role whose
// last-login falls within [start, end]. The delete is unconditional and not
// atomic across rows; it returns the number of accounts removed.
func (r *SQLiteAccountRepository) DeleteByRoleAndLoginRange(ctx context.Context, role Role, start, end time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM accounts WHERE role = ? AND last_login >= ? AND last_login <= ?",
		string(role), formatTime(start), formatTime(end),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting accounts by role and login range: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return rows, nil
}

// UpdateRoleForLoginRange sets the role on every account whose last-login
// falls within [start, end]. The new role is NOT validated here - callers
// must run it through ParseRole first. Returns the number of accounts
// updated.
func (r *SQLiteAccountRepository) UpdateRoleForLoginRange(ctx context.Context, start, end time.Time, newRole Role) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET role = ? WHERE last_login >= ? AND last_login <= ?",
		string(newRole), formatTime(start), formatTime(end),
	)
	if err != nil {
		return 0, fmt.Errorf("updating role for login range: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return rows, nil
}

// Count returns the total number of accounts.
func (r *SQLiteAccountRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting accounts: %w", err)
	}
	return count, nil
}

// getAccount executes a query and scans a single account result.
func (r *SQLiteAccountRepository) getAccount(ctx context.Context, query string, args ...any) (*Account, error) {
	return scanAccountFrom(r.db.QueryRowContext(ctx, query, args...))
}

// scanner is an interface over sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanAccountFrom scans an account from any scanner (Row or Rows).
//
// The stored role is carried through as-is, even when it is not a recognised
// role. Decoding into the closed Role set happens in the Authorizer so an
// unknown role surfaces as a distinct authorization outcome rather than a
// scan failure.
func scanAccountFrom(s scanner) (*Account, error) {
	var a Account
	var email sql.NullString
	var role, lastLogin string

	err := s.Scan(&a.ID, &a.Username, &a.Password, &role, &email, &a.APIKey, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}

	a.Role = Role(role)
	if email.Valid {
		a.Email = email.String
	}
	a.LastLogin, _ = time.Parse(time.RFC3339, lastLogin) //nolint:errcheck // format is controlled

	return &a, nil
}

// formatTime renders a timestamp in the canonical stored form:
// RFC3339 UTC at second precision.
func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isUsernameConflict checks whether err is the UNIQUE violation on the
// username column. The driver names the violated column, which keeps a
// collision on the api_key index from being reported as a taken username.
func isUsernameConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: accounts.username")
}
