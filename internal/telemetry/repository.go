package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const readingColumns = `id, device_name, time, latitude, longitude, precipitation,
	temperature, atmospheric_pressure, max_wind_speed, solar_radiation,
	vapor_pressure, humidity, wind_direction`

// ReadingRepository defines the interface for reading persistence.
//
// Range parameters are inclusive on both bounds. The repository performs no
// validation of ranges or measurement values: callers validate at the
// boundary, and garbage in yields empty results, not errors.
type ReadingRepository interface {
	GetByID(ctx context.Context, id string) (*Reading, error)
	GetRange(ctx context.Context, start, end time.Time) ([]Reading, error)
	GetRangeForDevice(ctx context.Context, device string, start, end time.Time) ([]Reading, error)
	MaxPrecipitation(ctx context.Context, device string) (*MaxPrecipitationRecord, error)
	MaxTemperaturePerDevice(ctx context.Context, start, end time.Time) ([]MaxTemperatureRecord, error)
	Snapshot(ctx context.Context, device string, at time.Time) (*Snapshot, error)
	InsertOne(ctx context.Context, reading *Reading) error
	InsertMany(ctx context.Context, readings []Reading) (int, error)
	Replace(ctx context.Context, id string, reading *Reading) error
	PatchPrecipitation(ctx context.Context, id string, value float64) error
}

// SQLiteReadingRepository implements ReadingRepository using SQLite.
type SQLiteReadingRepository struct {
	db *sql.DB

	// maxPrecipWindowMonths bounds the trailing window scanned by
	// MaxPrecipitation, measured back from the current time.
	maxPrecipWindowMonths int
}

// NewReadingRepository creates a new SQLite-backed reading repository.
// windowMonths sets the trailing window for MaxPrecipitation.
func NewReadingRepository(db *sql.DB, windowMonths int) *SQLiteReadingRepository {
	return &SQLiteReadingRepository{db: db, maxPrecipWindowMonths: windowMonths}
}

// GetByID retrieves a reading by its unique ID.
// A malformed ID is treated as not found and never reaches the store.
func (r *SQLiteReadingRepository) GetByID(ctx context.Context, id string) (*Reading, error) {
	if !IsValidReadingID(id) {
		return nil, ErrReadingNotFound
	}
	return scanReadingFrom(r.db.QueryRowContext(ctx,
		"SELECT "+readingColumns+" FROM readings WHERE id = ?", id))
}

// GetRange returns all readings with a timestamp in [start, end], oldest
// first. An inverted range simply matches nothing.
func (r *SQLiteReadingRepository) GetRange(ctx context.Context, start, end time.Time) ([]Reading, error) {
	return r.queryReadings(ctx,
		"SELECT "+readingColumns+" FROM readings WHERE time >= ? AND time <= ? ORDER BY time ASC",
		formatTime(start), formatTime(end))
}

// GetRangeForDevice returns all readings for one device with a timestamp in
// [start, end], oldest first.
func (r *SQLiteReadingRepository) GetRangeForDevice(ctx context.Context, device string, start, end time.Time) ([]Reading, error) {
	return r.queryReadings(ctx,
		"SELECT "+readingColumns+" FROM readings WHERE device_name = ? AND time >= ? AND time <= ? ORDER BY time ASC",
		device, formatTime(start), formatTime(end))
}

// MaxPrecipitation returns the single highest-precipitation reading for the
// device within the trailing window, reduced to device, time and value.
// Returns ErrReadingNotFound when the device has no readings in the window.
func (r *SQLiteReadingRepository) MaxPrecipitation(ctx context.Context, device string) (*MaxPrecipitationRecord, error) {
	windowStart := time.Now().UTC().AddDate(0, -r.maxPrecipWindowMonths, 0)

	var rec MaxPrecipitationRecord
	var at string
	err := r.db.QueryRowContext(ctx,
		`SELECT device_name, time, precipitation FROM readings
		 WHERE device_name = ? AND time >= ?
		 ORDER BY precipitation DESC, time ASC LIMIT 1`,
		device, formatTime(windowStart),
	).Scan(&rec.DeviceName, &at, &rec.Precipitation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReadingNotFound
		}
		return nil, fmt.Errorf("querying max precipitation: %w", err)
	}

	rec.Time = parseTime(at)
	return &rec, nil
}

// MaxTemperaturePerDevice returns, for every device with readings in
// [start, end], the maximum temperature it recorded in that range.
//
// The timestamp on each row is the one carried by the first reading stored
// for that device within the range, not the timestamp of the maximum itself.
// Consumers depend on this shape, so it is preserved.
func (r *SQLiteReadingRepository) MaxTemperaturePerDevice(ctx context.Context, start, end time.Time) ([]MaxTemperatureRecord, error) {
	startStr, endStr := formatTime(start), formatTime(end)

	rows, err := r.db.QueryContext(ctx,
		`SELECT device_name,
		        (SELECT i.time FROM readings i
		         WHERE i.device_name = readings.device_name
		           AND i.time >= ? AND i.time <= ?
		         ORDER BY i.rowid ASC LIMIT 1),
		        MAX(temperature)
		 FROM readings
		 WHERE time >= ? AND time <= ?
		 GROUP BY device_name
		 ORDER BY device_name ASC`,
		startStr, endStr, startStr, endStr)
	if err != nil {
		return nil, fmt.Errorf("querying max temperature per device: %w", err)
	}
	defer rows.Close()

	records := []MaxTemperatureRecord{}
	for rows.Next() {
		var rec MaxTemperatureRecord
		var at string
		if err := rows.Scan(&rec.DeviceName, &at, &rec.Temperature); err != nil {
			return nil, fmt.Errorf("scanning max temperature record: %w", err)
		}
		rec.Time = parseTime(at)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating max temperature records: %w", err)
	}

	return records, nil
}

// Snapshot returns the reduced view of the reading matching the device and
// the exact timestamp. Both keys are exact equality; a reading one second
// off is a miss.
func (r *SQLiteReadingRepository) Snapshot(ctx context.Context, device string, at time.Time) (*Snapshot, error) {
	var snap Snapshot
	var stored string
	err := r.db.QueryRowContext(ctx,
		`SELECT device_name, time, precipitation, temperature, atmospheric_pressure, solar_radiation
		 FROM readings WHERE device_name = ? AND time = ?`,
		device, formatTime(at),
	).Scan(&snap.DeviceName, &stored, &snap.Precipitation, &snap.Temperature,
		&snap.AtmosphericPressure, &snap.SolarRadiation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReadingNotFound
		}
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	snap.Time = parseTime(stored)
	return &snap, nil
}

// InsertOne persists a new reading. The ID is generated if empty, and the
// timestamp is normalized to the stored precision so the caller's copy
// matches what a later read returns.
func (r *SQLiteReadingRepository) InsertOne(ctx context.Context, reading *Reading) error {
	if reading.ID == "" {
		reading.ID = NewReadingID()
	}
	reading.Time = reading.Time.UTC().Truncate(time.Second)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO readings (`+readingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		readingArgs(reading)...,
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// InsertMany persists a batch of readings one by one. The batch is NOT
// atomic: a failure partway leaves earlier rows in place. Returns the
// number of readings actually inserted.
func (r *SQLiteReadingRepository) InsertMany(ctx context.Context, readings []Reading) (int, error) {
	inserted := 0
	for i := range readings {
		if err := r.InsertOne(ctx, &readings[i]); err != nil {
			return inserted, fmt.Errorf("inserting reading %d of %d: %w", i+1, len(readings), err)
		}
		inserted++
	}
	return inserted, nil
}

// Replace overwrites every field of the stored reading. The stored ID is
// forced to the path ID regardless of any ID carried in the body.
// Returns ErrReadingNotFound if the ID is malformed or matches nothing.
func (r *SQLiteReadingRepository) Replace(ctx context.Context, id string, reading *Reading) error {
	if !IsValidReadingID(id) {
		return ErrReadingNotFound
	}
	reading.ID = id
	reading.Time = reading.Time.UTC().Truncate(time.Second)

	result, err := r.db.ExecContext(ctx,
		`UPDATE readings SET device_name = ?, time = ?, latitude = ?, longitude = ?,
		 precipitation = ?, temperature = ?, atmospheric_pressure = ?,
		 max_wind_speed = ?, solar_radiation = ?, vapor_pressure = ?,
		 humidity = ?, wind_direction = ?
		 WHERE id = ?`,
		reading.DeviceName, formatTime(reading.Time), reading.Latitude, reading.Longitude,
		reading.Precipitation, reading.Temperature, reading.AtmosphericPressure,
		reading.MaxWindSpeed, reading.SolarRadiation, reading.VaporPressure,
		reading.Humidity, reading.WindDirection, id,
	)
	if err != nil {
		return fmt.Errorf("replacing reading: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrReadingNotFound
	}
	return nil
}

// PatchPrecipitation sets only the precipitation field on the stored
// reading. The value is NOT validated here - callers reject negatives at
// the boundary. Returns ErrReadingNotFound if the ID is malformed or
// matches nothing.
func (r *SQLiteReadingRepository) PatchPrecipitation(ctx context.Context, id string, value float64) error {
	if !IsValidReadingID(id) {
		return ErrReadingNotFound
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE readings SET precipitation = ? WHERE id = ?", value, id)
	if err != nil {
		return fmt.Errorf("patching precipitation: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrReadingNotFound
	}
	return nil
}

// queryReadings executes a query and scans the full reading rows.
func (r *SQLiteReadingRepository) queryReadings(ctx context.Context, query string, args ...any) ([]Reading, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	readings := []Reading{}
	for rows.Next() {
		rd, err := scanReadingFrom(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, *rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}

	return readings, nil
}

// scanner is an interface over sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanReadingFrom scans a full reading from any scanner (Row or Rows).
func scanReadingFrom(s scanner) (*Reading, error) {
	var rd Reading
	var at string

	err := s.Scan(&rd.ID, &rd.DeviceName, &at, &rd.Latitude, &rd.Longitude,
		&rd.Precipitation, &rd.Temperature, &rd.AtmosphericPressure,
		&rd.MaxWindSpeed, &rd.SolarRadiation, &rd.VaporPressure,
		&rd.Humidity, &rd.WindDirection)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReadingNotFound
		}
		return nil, fmt.Errorf("scanning reading: %w", err)
	}

	rd.Time = parseTime(at)
	return &rd, nil
}

// readingArgs flattens a reading into insert arguments, column order.
func readingArgs(rd *Reading) []any {
	return []any{
		rd.ID, rd.DeviceName, formatTime(rd.Time), rd.Latitude, rd.Longitude,
		rd.Precipitation, rd.Temperature, rd.AtmosphericPressure,
		rd.MaxWindSpeed, rd.SolarRadiation, rd.VaporPressure,
		rd.Humidity, rd.WindDirection,
	}
}

// formatTime renders a timestamp in the canonical stored form:
// RFC3339 UTC at second precision. Lexicographic order of the stored text
// matches chronological order, which is what makes the BETWEEN-style range
// predicates above correct.
func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s) //nolint:errcheck // format is controlled
	return t
}
