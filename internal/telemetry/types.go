package telemetry

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// readingIDPattern matches generated reading IDs ("rdg-" + 8 hex chars).
var readingIDPattern = regexp.MustCompile(`^rdg-[0-9a-f]{8}$`)

// IsValidReadingID reports whether id is a well-formed reading ID.
func IsValidReadingID(id string) bool {
	return readingIDPattern.MatchString(id)
}

// NewReadingID generates a unique reading identifier.
func NewReadingID() string {
	return "rdg-" + uuid.NewString()[:8]
}

// Sentinel errors for reading operations.
var (
	ErrReadingNotFound = errors.New("reading not found")
)

// Reading is a single weather station observation.
//
// The JSON tags carry the upstream sensor export headings verbatim and must
// not be changed.
type Reading struct {
	ID                  string    `json:"id,omitempty"`
	DeviceName          string    `json:"Device Name"`
	Precipitation       float64   `json:"Precipitation mm/h"`
	Time                time.Time `json:"Time"`
	Latitude            float64   `json:"Latitude"`
	Longitude           float64   `json:"Longitude"`
	Temperature         float64   `json:"Temperature (°C)"`
	AtmosphericPressure float64   `json:"Atmospheric Pressure (kPa)"`
	MaxWindSpeed        float64   `json:"Max Wind Speed (m/s)"`
	SolarRadiation      float64   `json:"Solar Radiation (W/m2)"`
	VaporPressure       float64   `json:"Vapor Pressure (kPa)"`
	Humidity            float64   `json:"Humidity (%)"`
	WindDirection       float64   `json:"Wind Direction (°)"`
}

// MaxPrecipitationRecord is the reduced projection returned by the
// max-precipitation query.
type MaxPrecipitationRecord struct {
	DeviceName    string    `json:"Device Name"`
	Time          time.Time `json:"Time"`
	Precipitation float64   `json:"Precipitation mm/h"`
}

// MaxTemperatureRecord is one row of the per-device maximum temperature
// report.
type MaxTemperatureRecord struct {
	DeviceName  string    `json:"Device Name"`
	Time        time.Time `json:"Time"`
	Temperature float64   `json:"Temperature (°C)"`
}

// Snapshot is the reduced view of a single reading at an exact moment.
type Snapshot struct {
	DeviceName          string    `json:"Device Name"`
	Time                time.Time `json:"Time"`
	Precipitation       float64   `json:"Precipitation mm/h"`
	Temperature         float64   `json:"Temperature (°C)"`
	AtmosphericPressure float64   `json:"Atmospheric Pressure (kPa)"`
	SolarRadiation      float64   `json:"Solar Radiation (W/m2)"`
}
