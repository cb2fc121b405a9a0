package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gyaneshwarpardhi/towerroot/internal/dag"
	"github.com/gyaneshwarpardhi/towerroot/internal/engine"
	"github.com/gyaneshwarpardhi/towerroot/internal/nodeline"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string   `json:"error"`
	Kind  string   `json:"kind,omitempty"`
	Line  int      `json:"line,omitempty"`
	IDs   []string `json:"ids,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps an engine or core error onto a status code and envelope.
func writeFailure(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	var (
		pe *nodeline.ParseError
		se *dag.StructuralError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &pe):
		status = http.StatusBadRequest
		resp.Kind = "parse_error"
		resp.Line = pe.Line
	case errors.As(err, &se):
		status = http.StatusUnprocessableEntity
		resp.Kind = string(se.Kind)
		resp.Line = se.Line
		resp.IDs = se.IDs
	case errors.Is(err, engine.ErrQueueFull):
		status = http.StatusTooManyRequests
	case errors.Is(err, engine.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, engine.ErrNoSnapshot), errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
