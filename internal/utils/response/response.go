// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every endpoint answers with the same envelope:
//
//	{ "success": true,  "data": {...}, "total": 3 }
//	{ "success": true,  "message": "Course updated successfully" }
//	{ "success": false, "error": "Course not found" }
//
// Rather than repeating the same three lines (set header, set status,
// encode JSON) in every handler, we centralise them here.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Response is the envelope shared by every endpoint. Only the keys that
// apply to a given answer are present.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Total   *int   `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK wraps a single record (or any payload) in a success envelope.
func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// List wraps a slice together with its length.
func List[T any](items []T) Response {
	total := len(items)
	return Response{Success: true, Data: items, Total: &total}
}

// Message is a success envelope carrying only a human-readable message.
func Message(msg string) Response {
	return Response{Success: true, Message: msg}
}

// GeneralError wraps any Go error into a failure envelope. The message is
// passed through untouched.
func GeneralError(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteError maps err onto a status code and writes the failure envelope.
// An *HTTPError anywhere in the chain decides the status; everything else
// is a store failure and becomes 500 with its message verbatim.
func WriteError(w http.ResponseWriter, err error) error {
	status := http.StatusInternalServerError

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Status
	}

	return WriteJSON(w, status, GeneralError(err))
}
