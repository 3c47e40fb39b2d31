// Package ingest bridges MQTT reading publishes into the telemetry store.
//
// Field stations on flaky links publish readings to
// weathervane/readings/{device} instead of holding an HTTP connection
// open. The bridge subscribes to that namespace, decodes each payload
// (same wire format as the POST /readings endpoint), and stores it through
// the reading repository. When the repository is wrapped with the InfluxDB
// mirror, MQTT-ingested readings are mirrored exactly like HTTP ones.
//
// There is no authorization on this path: broker credentials and topic
// ACLs stand in for the SENSOR role, the same trust boundary the rest of
// the system places on the broker.
package ingest
