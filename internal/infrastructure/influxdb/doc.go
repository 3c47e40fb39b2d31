// Package influxdb mirrors stored weather readings into InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes, and health monitoring.
//
// # Purpose
//
// SQLite is the system of record; InfluxDB is an optional, best-effort
// mirror for dashboarding (Grafana and the like). Every reading accepted
// over HTTP or MQTT is also written here as one point of the "weather"
// measurement, tagged by device. A mirror failure never fails the original
// write.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteReading(reading)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes; batch errors
// surface via the SetOnError callback.
package influxdb
