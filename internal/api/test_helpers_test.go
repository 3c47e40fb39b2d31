package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rowanveldt/weathervane/internal/auth"
	"github.com/rowanveldt/weathervane/internal/infrastructure/config"
	"github.com/rowanveldt/weathervane/internal/infrastructure/logging"
	"github.com/rowanveldt/weathervane/internal/telemetry"
)

// testWindowMonths keeps every test reading inside the max-precipitation
// trailing window.
const testWindowMonths = 50

// testServer creates a Server backed by in-memory SQLite with both schemas
// applied, plus direct handles on the repositories for seeding.
func testServer(t *testing.T) (*Server, *auth.SQLiteAccountRepository, *telemetry.SQLiteReadingRepository) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// A pooled second connection would see a different empty memory database.
	db.SetMaxOpenConns(1)
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

		CREATE TABLE readings (
			id TEXT PRIMARY KEY,
			device_name TEXT NOT NULL,
			time TEXT NOT NULL,
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0,
			precipitation REAL NOT NULL DEFAULT 0,
			temperature REAL NOT NULL DEFAULT 0,
			atmospheric_pressure REAL NOT NULL DEFAULT 0,
			max_wind_speed REAL NOT NULL DEFAULT 0,
			solar_radiation REAL NOT NULL DEFAULT 0,
			vapor_pressure REAL NOT NULL DEFAULT 0,
			humidity REAL NOT NULL DEFAULT 0,
			wind_direction REAL NOT NULL DEFAULT 0
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	accounts := auth.NewAccountRepository(db)
	readings := telemetry.NewReadingRepository(db, testWindowMonths)
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		Logger:     log,
		Authorizer: auth.NewAuthorizer(accounts),
		Accounts:   accounts,
		Readings:   readings,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv, accounts, readings
}

// seedAccount inserts an account with a generated API key.
func seedAccount(t *testing.T, repo *auth.SQLiteAccountRepository, username string, role auth.Role) *auth.Account {
	t.Helper()

	account := &auth.Account{
		Username: username,
		Password: "pw",
		Role:     role,
		APIKey:   auth.NewAPIKey(),
	}
	if err := repo.Insert(context.Background(), account); err != nil {
		t.Fatalf("seeding account %s: %v", username, err)
	}
	return account
}

// doRequest runs one request through the full router and returns the
// recorded response. A nil body sends no payload; other values are JSON
// encoded. An empty apiKey omits the header entirely.
func doRequest(t *testing.T, srv *Server, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		req.Header.Set("apiKey", apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

// decodeBody unmarshals the recorded JSON response into a map.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return out
}

// mustStatus fails the test when the recorded status differs.
func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, want, rec.Body.String())
	}
}
