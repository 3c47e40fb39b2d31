package telemetry

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testWindowMonths is generous enough that test readings written at "now"
// minus a few days always fall inside the max-precipitation window.
const testWindowMonths = 50

// testDB creates a temporary SQLite database with the readings schema
// applied. The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "telemetry-test-*.db")
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

		CREATE INDEX idx_readings_time ON readings(time);
		CREATE INDEX idx_readings_device_time ON readings(device_name, time);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying readings schema: %v", err)
	}

	return db
}

// seedReading inserts a reading for the device at the given time with the
// given temperature and precipitation, leaving the other measurements zero.
func seedReading(t *testing.T, repo *SQLiteReadingRepository, device string, at time.Time, temp, precip float64) *Reading {
	t.Helper()

	rd := &Reading{
		DeviceName:    device,
		Time:          at,
		Temperature:   temp,
		Precipitation: precip,
	}
	if err := repo.InsertOne(context.Background(), rd); err != nil {
		t.Fatalf("seeding reading for %s: %v", device, err)
	}
	return rd
}
