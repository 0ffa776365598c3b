package handler

import (
	"encoding/json"
	"net/http"

	"dressup/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeSessionError maps the state machine error taxonomy onto HTTP status
// codes and surfaces the human-readable message to the caller.
func writeSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch session.KindOf(err) {
	case session.KindNotFound:
		status = http.StatusNotFound
	case session.KindForbidden:
		status = http.StatusForbidden
	case session.KindInvalidState, session.KindCapacityExceeded:
		status = http.StatusBadRequest
	case session.KindUnavailable:
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, err.Error())
}
