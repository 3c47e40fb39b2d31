package ingest

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rowanveldt/weathervane/internal/infrastructure/config"
	"github.com/rowanveldt/weathervane/internal/infrastructure/logging"
	"github.com/rowanveldt/weathervane/internal/infrastructure/mqtt"
	"github.com/rowanveldt/weathervane/internal/telemetry"
)

// fakeSubscriber records subscriptions so handlers can be driven directly.
type fakeSubscriber struct {
	topics   map[string]mqtt.MessageHandler
	unsubbed []string
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{topics: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeSubscriber) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.topics[topic] = handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topic string) error {
	delete(f.topics, topic)
	f.unsubbed = append(f.unsubbed, topic)
	return nil
}

func testBridge(t *testing.T) (*Bridge, *fakeSubscriber, *telemetry.SQLiteReadingRepository) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
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
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying schema: %v", err)
	}

	readings := telemetry.NewReadingRepository(db, 50)
	sub := newFakeSubscriber()
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	bridge, err := New(Deps{MQTT: sub, Readings: readings, Logger: log, QoS: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return bridge, sub, readings
}

func TestBridge_StartSubscribes(t *testing.T) {
	bridge, sub, _ := testBridge(t)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, ok := sub.topics["weathervane/readings/+"]; !ok {
		t.Errorf("Start() subscribed to %v, want weathervane/readings/+", sub.topics)
	}

	if err := bridge.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if len(sub.unsubbed) != 1 {
		t.Errorf("Close() should unsubscribe")
	}
}

func TestBridge_IngestsReading(t *testing.T) {
	bridge, sub, readings := testBridge(t)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	handler := sub.topics["weathervane/readings/+"]

	payload := `{
		"Device Name": "station-alpha",
		"Time": "2026-07-10T06:00:00Z",
		"Temperature (°C)": 18.5,
		"Precipitation mm/h": 0.4
	}`
	if err := handler("weathervane/readings/station-alpha", []byte(payload)); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	start := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 11, 0, 0, 0, 0, time.UTC)
	stored, err := readings.GetRangeForDevice(context.Background(), "station-alpha", start, end)
	if err != nil {
		t.Fatalf("GetRangeForDevice() error = %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored %d readings, want 1", len(stored))
	}
	if stored[0].Temperature != 18.5 {
		t.Errorf("Temperature = %v, want 18.5", stored[0].Temperature)
	}
	if !telemetry.IsValidReadingID(stored[0].ID) {
		t.Errorf("stored ID %q should be server-assigned", stored[0].ID)
	}
}

func TestBridge_TopicDeviceFillsMissingName(t *testing.T) {
	bridge, sub, readings := testBridge(t)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	handler := sub.topics["weathervane/readings/+"]

	payload := `{"Time": "2026-07-10T06:00:00Z", "Temperature (°C)": 12.0}`
	if err := handler("weathervane/readings/station-beta", []byte(payload)); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	start := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 11, 0, 0, 0, 0, time.UTC)
	stored, err := readings.GetRangeForDevice(context.Background(), "station-beta", start, end)
	if err != nil {
		t.Fatalf("GetRangeForDevice() error = %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("stored %d readings under topic device, want 1", len(stored))
	}
}

func TestBridge_RejectsMisaddressedReading(t *testing.T) {
	bridge, sub, _ := testBridge(t)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	handler := sub.topics["weathervane/readings/+"]

	payload := `{"Device Name": "station-beta", "Time": "2026-07-10T06:00:00Z"}`
	err := handler("weathervane/readings/station-alpha", []byte(payload))
	if err == nil || !strings.Contains(err.Error(), "station-beta") {
		t.Errorf("handler error = %v, want misaddressed rejection", err)
	}
}

func TestBridge_RejectsGarbagePayload(t *testing.T) {
	bridge, sub, _ := testBridge(t)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	handler := sub.topics["weathervane/readings/+"]

	if err := handler("weathervane/readings/station-alpha", []byte("not json")); err == nil {
		t.Error("handler should reject undecodable payloads")
	}
}
