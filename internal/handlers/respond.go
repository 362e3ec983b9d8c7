// Package handlers serves the HTTP API: request decoding, auth context
// checks, and mapping lifecycle errors onto the JSON envelope.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/moltmarket/backend/internal/lifecycle"
)

// writeSuccess writes the success envelope: the payload keys plus
// "success": true.
func writeSuccess(w http.ResponseWriter, status int, payload map[string]any) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeErrorMsg(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: kind, Message: msg})
}

// writeError maps lifecycle sentinel kinds onto HTTP statuses. Anything
// unrecognized is logged and reported as a 500 without leaking the cause.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		writeErrorMsg(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, lifecycle.ErrBadRequest):
		writeErrorMsg(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, lifecycle.ErrForbidden):
		writeErrorMsg(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, lifecycle.ErrUnauthorized):
		writeErrorMsg(w, http.StatusUnauthorized, "unauthorized", err.Error())
	default:
		log.Error("request failed", "error", err)
		writeErrorMsg(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func badRequestMsg(w http.ResponseWriter, msg string) {
	writeErrorMsg(w, http.StatusBadRequest, "bad_request", msg)
}

func unauthorizedMsg(w http.ResponseWriter, msg string) {
	writeErrorMsg(w, http.StatusUnauthorized, "unauthorized", msg)
}
