package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the standard error response body. Detail is deliberately
// coarse: internal causes never reach the caller.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, ErrorResponse{Detail: detail})
}

// SummaryResponse is the success body shared by both processing variants.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// MessageResponse is the liveness probe body.
type MessageResponse struct {
	Message string `json:"message"`
}
