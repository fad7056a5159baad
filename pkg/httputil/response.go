// Package httputil provides the gateway's HTTP response contract and
// request parsing helpers.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ErrorResponse is the structured body returned on every denial
type ErrorResponse struct {
	Error     string    `json:"error"`   // stable error category
	Message   string    `json:"message"` // human-readable
	Timestamp time.Time `json:"timestamp"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes the denial contract body
func WriteErrorResponse(w http.ResponseWriter, status int, category, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error:     category,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// WriteUnauthorized writes a 401 authentication failure
func WriteUnauthorized(w http.ResponseWriter, category, message string) {
	w.Header().Set("WWW-Authenticate", `ApiKey realm="api", Signature realm="api"`)
	WriteErrorResponse(w, http.StatusUnauthorized, category, message)
}

// WriteForbidden writes a 403 authorization denial
func WriteForbidden(w http.ResponseWriter, category, message string) {
	WriteErrorResponse(w, http.StatusForbidden, category, message)
}

// WriteTooManyRequests writes a 429 with a Retry-After header
func WriteTooManyRequests(w http.ResponseWriter, retryAfter time.Duration, message string) {
	secs := int(retryAfter / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
	WriteErrorResponse(w, http.StatusTooManyRequests, "rate_limited", message)
}

// WriteServiceUnavailable writes a 503 infrastructure denial. Used when
// a backing store is unreachable and the gateway fails closed.
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, http.StatusServiceUnavailable, "service_unavailable", message)
}

// WriteSuccess writes a 200 response with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a 201 response with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteNotFound writes a 404 in the denial contract shape
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, http.StatusNotFound, "not_found", message)
}

// WriteBadRequest writes a 400 in the denial contract shape
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, http.StatusBadRequest, "bad_request", message)
}
