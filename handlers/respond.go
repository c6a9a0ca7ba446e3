// Package handlers provides the HTTP handlers of the analysis API: batch and
// streaming analysis, image upload, drug and interaction lookups,
// translation, audit history and health.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/generation"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/ocr"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/pipeline"
)

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

// RespondWithJSON writes payload as JSON with the given status code
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Warn("Failed to write JSON response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	})
}

// statusFor maps pipeline and collaborator errors onto HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, pipeline.ErrInvalidInput), errors.Is(err, ocr.ErrInvalidImageID), errors.Is(err, ocr.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, ocr.ErrImageNotFound):
		return http.StatusNotFound
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pipeline.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, generation.ErrProviderDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondWithFailure logs err and writes the mapped error response.
// Internal errors are not echoed to the client.
func respondWithFailure(w http.ResponseWriter, err error, action string) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logging.Error(action+" failed", "error", err)
		RespondWithError(w, code, action+" failed")
		return
	}
	logging.Warn(action+" rejected", "error", err, "status", code)
	RespondWithError(w, code, err.Error())
}
