package auth

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the accounts schema applied.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "auth-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE accounts (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			email TEXT,
			api_key TEXT NOT NULL UNIQUE,
			last_login TEXT NOT NULL
		) STRICT;

		CREATE INDEX idx_accounts_role ON accounts(role);
		CREATE INDEX idx_accounts_last_login ON accounts(last_login);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying accounts schema: %v", err)
	}

	return db
}

// seedTestAccount inserts an account with the given username and role and
// returns it (API key generated).
func seedTestAccount(t *testing.T, repo *SQLiteAccountRepository, username string, role Role) *Account {
	t.Helper()

	account := &Account{
		Username: username,
		Password: "plaintext-by-contract",
		Role:     role,
		APIKey:   NewAPIKey(),
	}
	if err := repo.Insert(context.Background(), account); err != nil {
		t.Fatalf("creating test account %s: %v", username, err)
	}
	return account
}

// setLastLogin forces an account's last-login to a fixed time, bypassing the
// repository so tests can build precise date ranges.
func setLastLogin(t *testing.T, db *sql.DB, accountID string, at time.Time) {
	t.Helper()

	_, err := db.ExecContext(context.Background(),
		"UPDATE accounts SET last_login = ? WHERE id = ?",
		at.UTC().Truncate(time.Second).Format(time.RFC3339), accountID,
	)
	if err != nil {
		t.Fatalf("setting last login: %v", err)
	}
}
