package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/rowanveldt/weathervane/internal/telemetry"
)

// weatherMeasurement is the measurement every mirrored reading lands in.
const weatherMeasurement = "weather"

// WriteReading mirrors one stored reading as a point of the "weather"
// measurement tagged by device name, timestamped with the reading's own
// observation time.
//
// The write is non-blocking; data is batched and sent asynchronously.
// When the client is disconnected the point is silently dropped: the
// mirror is best effort and SQLite remains the system of record.
func (c *Client) WriteReading(reading *telemetry.Reading) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		weatherMeasurement,
		map[string]string{
			"device": reading.DeviceName,
		},
		map[string]interface{}{
			"precipitation":        reading.Precipitation,
			"temperature":          reading.Temperature,
			"atmospheric_pressure": reading.AtmosphericPressure,
			"max_wind_speed":       reading.MaxWindSpeed,
			"solar_radiation":      reading.SolarRadiation,
			"vapor_pressure":       reading.VaporPressure,
			"humidity":             reading.Humidity,
			"wind_direction":       reading.WindDirection,
			"latitude":             reading.Latitude,
			"longitude":            reading.Longitude,
		},
		reading.Time,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over measurement,
// tags, and fields. Use for data that does not fit WriteReading.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
