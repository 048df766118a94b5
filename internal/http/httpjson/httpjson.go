// Package httpjson holds the JSON response helpers shared by the public handlers.
package httpjson

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the {"error": ...} envelope every endpoint uses for failures.
type ErrorBody struct {
	Error string `json:"error"`
}

// Write encodes payload as JSON with the given status.
func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, status int, msg string) {
	Write(w, status, ErrorBody{Error: msg})
}
