package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rowanveldt/weathervane/internal/infrastructure/logging"
	"github.com/rowanveldt/weathervane/internal/infrastructure/mqtt"
	"github.com/rowanveldt/weathervane/internal/telemetry"
)

// Subscriber is the slice of the MQTT client the bridge needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Deps holds the dependencies required by the ingest bridge.
type Deps struct {
	MQTT     Subscriber
	Readings telemetry.ReadingRepository
	Logger   *logging.Logger
	QoS      byte
}

// Bridge subscribes to the reading namespace and stores every publish.
type Bridge struct {
	mqtt     Subscriber
	readings telemetry.ReadingRepository
	logger   *logging.Logger
	qos      byte
}

// New creates an ingest bridge. It does not subscribe until Start().
func New(deps Deps) (*Bridge, error) {
	if deps.MQTT == nil {
		return nil, fmt.Errorf("mqtt client is required")
	}
	if deps.Readings == nil {
		return nil, fmt.Errorf("reading repository is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Bridge{
		mqtt:     deps.MQTT,
		readings: deps.Readings,
		logger:   deps.Logger,
		qos:      deps.QoS,
	}, nil
}

// Start subscribes to weathervane/readings/+.
func (b *Bridge) Start() error {
	topic := mqtt.Topics{}.AllReadings()
	if err := b.mqtt.Subscribe(topic, b.qos, b.handleReading); err != nil {
		return fmt.Errorf("subscribing to reading topic: %w", err)
	}

	b.logger.Info("reading ingest bridge started", "topic", topic)
	return nil
}

// Close unsubscribes from the reading namespace.
func (b *Bridge) Close() error {
	if err := b.mqtt.Unsubscribe(mqtt.Topics{}.AllReadings()); err != nil {
		return fmt.Errorf("unsubscribing from reading topic: %w", err)
	}
	return nil
}

// handleReading decodes and stores one published reading.
//
// The topic's device segment is authoritative for routing: a payload with
// no device name inherits it, and a payload naming a different device is
// rejected as misaddressed rather than silently filed under either name.
func (b *Bridge) handleReading(topic string, payload []byte) error {
	device := mqtt.DeviceFromReadingTopic(topic)
	if device == "" {
		return fmt.Errorf("not a reading topic: %s", topic)
	}

	var reading telemetry.Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return fmt.Errorf("decoding reading from %s: %w", topic, err)
	}

	switch reading.DeviceName {
	case "":
		reading.DeviceName = device
	case device:
		// Payload and topic agree.
	default:
		return fmt.Errorf("reading for %q published on topic for %q", reading.DeviceName, device)
	}

	reading.ID = "" // ids are always server-assigned
	if err := b.readings.InsertOne(context.Background(), &reading); err != nil {
		return fmt.Errorf("storing reading from %s: %w", device, err)
	}

	b.logger.Debug("reading ingested",
		"device", reading.DeviceName,
		"reading_id", reading.ID,
		"time", reading.Time,
	)
	return nil
}
