package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rowanveldt/weathervane/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// Role allow-lists are declared inline so this function doubles as the
// permission map: readings are readable by people (STUDENT, TEACHER),
// writable by data producers (TEACHER, SENSOR), and correctable only by
// TEACHER. Everything under /accounts is TEACHER only.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	readers := []auth.Role{auth.RoleStudent, auth.RoleTeacher}
	producers := []auth.Role{auth.RoleTeacher, auth.RoleSensor}
	teacherOnly := []auth.Role{auth.RoleTeacher}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		r.Route("/readings", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.requireRoles(readers...))
				r.Get("/range", s.handleReadingsRange)
				r.Get("/device/{device}/range", s.handleDeviceReadingsRange)
				r.Get("/max-temperature", s.handleMaxTemperature)
				r.Get("/max-precipitation", s.handleMaxPrecipitation)
				r.Get("/snapshot/{device}", s.handleSnapshot)
				r.Get("/{id}", s.handleGetReading)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireRoles(producers...))
				r.Post("/", s.handleCreateReading)
				r.Post("/batch", s.handleCreateReadingBatch)
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireRoles(teacherOnly...))
				r.Put("/{id}", s.handleReplaceReading)
				r.Patch("/{id}/precipitation", s.handlePatchPrecipitation)
			})
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Use(s.requireRoles(teacherOnly...))
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleCreateAccount)
			r.Patch("/role", s.handleBulkUpdateRole)
			r.Delete("/by-role/{role}", s.handleDeleteAccountsByRole)
			r.Get("/{id}", s.handleGetAccount)
			r.Delete("/{id}", s.handleDeleteAccount)
		})
	})

	return r
}

// handleHealth returns the server health status, including database
// reachability when a database was wired in.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if s.database != nil {
		if err := s.database.HealthCheck(r.Context()); err != nil {
			dbStatus = "unavailable"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"database": dbStatus,
	})
}
