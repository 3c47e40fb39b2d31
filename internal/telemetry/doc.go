// Package telemetry stores and queries weather sensor readings.
//
// Readings are written by field sensors and queried by people, so the wire
// field names are part of the contract: the JSON tags on Reading reproduce
// the upstream column headings byte for byte, spaces, units and degree signs
// included. Renaming them breaks every existing sensor and notebook.
//
// Timestamps are stored as RFC3339 UTC text at second precision, which makes
// lexicographic comparison in SQL agree with chronological order. All range
// queries are inclusive on both bounds and perform no validation: an inverted
// range is a valid question with an empty answer.
package telemetry
