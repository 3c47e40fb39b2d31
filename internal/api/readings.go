package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rowanveldt/weathervane/internal/telemetry"
)

// parseTimeRange extracts and validates the start/end query parameters.
// Writes a 400 response and returns ok=false when either is missing,
// unparsable, or end is not strictly after start.
func parseTimeRange(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	startParam := r.URL.Query().Get("start")
	endParam := r.URL.Query().Get("end")
	if startParam == "" || endParam == "" {
		writeBadRequest(w, "start and end query parameters are required")
		return
	}

	var err error
	if start, err = time.Parse(time.RFC3339, startParam); err != nil {
		writeBadRequest(w, "start must be an RFC3339 timestamp")
		return
	}
	if end, err = time.Parse(time.RFC3339, endParam); err != nil {
		writeBadRequest(w, "end must be an RFC3339 timestamp")
		return
	}
	if !end.After(start) {
		writeBadRequest(w, "end must be after start")
		return
	}

	ok = true
	return
}

// handleGetReading returns a single reading by ID.
// A malformed ID is indistinguishable from an absent one.
func (s *Server) handleGetReading(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reading, err := s.readings.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, telemetry.ErrReadingNotFound) {
			writeNotFound(w, "reading not found")
			return
		}
		writeInternalError(w, "failed to get reading")
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

// handleReadingsRange returns all readings in [start, end].
func (s *Server) handleReadingsRange(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseTimeRange(w, r)
	if !ok {
		return
	}

	readings, err := s.readings.GetRange(r.Context(), start, end)
	if err != nil {
		writeInternalError(w, "failed to query readings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"readings": readings, "count": len(readings)})
}

// handleDeviceReadingsRange returns one device's readings in [start, end].
func (s *Server) handleDeviceReadingsRange(w http.ResponseWriter, r *http.Request) {
	device := chi.URLParam(r, "device")
	start, end, ok := parseTimeRange(w, r)
	if !ok {
		return
	}

	readings, err := s.readings.GetRangeForDevice(r.Context(), device, start, end)
	if err != nil {
		writeInternalError(w, "failed to query readings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"readings": readings, "count": len(readings)})
}

// handleMaxTemperature returns the per-device maximum temperature report
// for [start, end].
func (s *Server) handleMaxTemperature(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseTimeRange(w, r)
	if !ok {
		return
	}

	records, err := s.readings.MaxTemperaturePerDevice(r.Context(), start, end)
	if err != nil {
		writeInternalError(w, "failed to query max temperature")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records, "count": len(records)})
}

// handleMaxPrecipitation returns the highest precipitation reading for one
// device within the configured trailing window.
func (s *Server) handleMaxPrecipitation(w http.ResponseWriter, r *http.Request) {
	device := r.URL.Query().Get("device")
	if device == "" {
		writeBadRequest(w, "device query parameter is required")
		return
	}

	record, err := s.readings.MaxPrecipitation(r.Context(), device)
	if err != nil {
		if errors.Is(err, telemetry.ErrReadingNotFound) {
			writeNotFound(w, "no readings for device in window")
			return
		}
		writeInternalError(w, "failed to query max precipitation")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleSnapshot returns the reduced reading view for an exact device and
// timestamp pair.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	device := chi.URLParam(r, "device")
	atParam := r.URL.Query().Get("at")
	if atParam == "" {
		writeBadRequest(w, "at query parameter is required")
		return
	}
	at, err := time.Parse(time.RFC3339, atParam)
	if err != nil {
		writeBadRequest(w, "at must be an RFC3339 timestamp")
		return
	}

	snapshot, err := s.readings.Snapshot(r.Context(), device, at)
	if err != nil {
		if errors.Is(err, telemetry.ErrReadingNotFound) {
			writeNotFound(w, "no reading at that exact time")
			return
		}
		writeInternalError(w, "failed to query snapshot")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// handleCreateReading stores a single reading and echoes the stored record.
func (s *Server) handleCreateReading(w http.ResponseWriter, r *http.Request) {
	var reading telemetry.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeBadRequest(w, "invalid reading payload")
		return
	}
	if reading.DeviceName == "" {
		writeBadRequest(w, "Device Name is required")
		return
	}

	reading.ID = "" // ids are always server-assigned
	if err := s.readings.InsertOne(r.Context(), &reading); err != nil {
		s.logger.Error("failed to insert reading", "error", err)
		writeInternalError(w, "failed to store reading")
		return
	}

	writeJSON(w, http.StatusCreated, reading)
}

// handleCreateReadingBatch stores a batch of readings. The batch is not
// atomic: on failure the response reports how many rows made it in.
func (s *Server) handleCreateReadingBatch(w http.ResponseWriter, r *http.Request) {
	var batch []telemetry.Reading
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeBadRequest(w, "invalid batch payload")
		return
	}
	if len(batch) == 0 {
		writeBadRequest(w, "batch must contain at least one reading")
		return
	}
	for i := range batch {
		if batch[i].DeviceName == "" {
			writeBadRequest(w, "every reading in the batch needs a Device Name")
			return
		}
		batch[i].ID = ""
	}

	inserted, err := s.readings.InsertMany(r.Context(), batch)
	if err != nil {
		s.logger.Error("batch insert failed partway",
			"inserted", inserted,
			"batch_size", len(batch),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "batch insert failed partway")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"inserted": inserted, "readings": batch})
}

// handleReplaceReading overwrites a stored reading wholesale. The path ID
// wins over any ID in the body.
func (s *Server) handleReplaceReading(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !telemetry.IsValidReadingID(id) {
		writeBadRequest(w, "malformed reading id")
		return
	}

	var reading telemetry.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeBadRequest(w, "invalid reading payload")
		return
	}
	if reading.DeviceName == "" {
		writeBadRequest(w, "Device Name is required")
		return
	}

	if err := s.readings.Replace(r.Context(), id, &reading); err != nil {
		if errors.Is(err, telemetry.ErrReadingNotFound) {
			writeNotFound(w, "reading not found")
			return
		}
		writeInternalError(w, "failed to replace reading")
		return
	}

	writeJSON(w, http.StatusOK, reading)
}

// patchPrecipitationRequest carries the new precipitation value. The field
// name matches the reading wire contract; a pointer distinguishes an absent
// field from an explicit zero.
type patchPrecipitationRequest struct {
	Precipitation *float64 `json:"Precipitation mm/h"`
}

// handlePatchPrecipitation updates only the precipitation field of a
// stored reading.
func (s *Server) handlePatchPrecipitation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !telemetry.IsValidReadingID(id) {
		writeBadRequest(w, "malformed reading id")
		return
	}

	var req patchPrecipitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid patch payload")
		return
	}
	if req.Precipitation == nil {
		writeBadRequest(w, "Precipitation mm/h is required")
		return
	}
	if *req.Precipitation < 0 {
		writeBadRequest(w, "precipitation cannot be negative")
		return
	}

	if err := s.readings.PatchPrecipitation(r.Context(), id, *req.Precipitation); err != nil {
		if errors.Is(err, telemetry.ErrReadingNotFound) {
			writeNotFound(w, "reading not found")
			return
		}
		writeInternalError(w, "failed to update precipitation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "Precipitation mm/h": *req.Precipitation})
}
