package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/matthewbaird/rentmetrics/internal/records"
	"github.com/matthewbaird/rentmetrics/internal/types"
)

// maxBodyBytes caps snapshot uploads.
const maxBodyBytes = 16 << 20

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON encode error", slog.Any("error", err))
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// internalError logs err and writes a generic 500.
func internalError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.ErrorContext(r.Context(), "internal error",
		slog.String("path", r.URL.Path), slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// storeErrorToHTTP maps store errors to HTTP responses.
func storeErrorToHTTP(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if errors.Is(err, records.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	internalError(w, r, logger, err)
}

// decodeSnapshot reads a raw backend snapshot from the request body.
func decodeSnapshot(w http.ResponseWriter, r *http.Request, adapter *records.Adapter) (types.Snapshot, bool) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "reading body: "+err.Error())
		return types.Snapshot{}, false
	}
	snap, err := adapter.DecodeSnapshot(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return types.Snapshot{}, false
	}
	return snap, true
}

// parseNow reads the optional ?now= evaluation time. Engines are pure
// functions of their input and this instant.
func parseNow(w http.ResponseWriter, r *http.Request, clock func() time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get("now")
	if raw == "" {
		return clock(), true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_NOW", "now must be RFC3339: "+raw)
		return time.Time{}, false
	}
	return t, true
}
