package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the Weathervane MQTT namespace.
const (
	// TopicPrefix is the base for all Weathervane topics.
	TopicPrefix = "weathervane"

	// TopicPrefixReadings is the base for reading ingest topics.
	TopicPrefixReadings = "weathervane/readings"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "weathervane/system"
)

// Topics provides builders for Weathervane MQTT topics.
// Using these helpers keeps topic naming consistent between the ingest
// bridge and station firmware.
type Topics struct{}

// Reading returns the topic a station publishes readings to.
//
// Example: weathervane/readings/station-alpha
func (Topics) Reading(device string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixReadings, device)
}

// AllReadings returns a pattern matching reading publishes from any device.
//
// Pattern: weathervane/readings/+
func (Topics) AllReadings() string {
	return TopicPrefixReadings + "/+"
}

// SystemStatus returns the service status topic, used for the online
// announcement and the LWT.
//
// Example: weathervane/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// DeviceFromReadingTopic extracts the device segment from a reading topic.
// Returns the empty string when the topic is not a reading topic or names
// no device.
func DeviceFromReadingTopic(topic string) string {
	rest, ok := strings.CutPrefix(topic, TopicPrefixReadings+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
