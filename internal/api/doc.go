// Package api provides the HTTP REST API server for Weathervane.
//
// It exposes the reading query and ingest endpoints used by classroom
// clients and field sensors, and the account management endpoints used by
// teachers.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Every route except /health sits behind the request gate: a chi middleware
// that reads the apiKey header, authenticates it against the account store,
// checks the caller's role against the route's allow-list, and records the
// access before the handler runs. Allow-lists are declared statically at
// route registration, so the full permission map is readable in router.go.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
