package http

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/atinyakov/artrecord/internal/catalog"
)

// statusFor maps catalog errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrCodec):
		return http.StatusUnprocessableEntity
	case errors.Is(err, catalog.ErrStorageWrite):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	if errors.Is(err, catalog.ErrStorageWrite) {
		msg += " (the catalog shown may differ from what is saved)"
	}
	writeJSON(w, statusFor(err), map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAttachment sends v as a downloadable JSON file.
func writeAttachment(w http.ResponseWriter, filename string, v any) {
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	writeJSON(w, http.StatusOK, v)
}
