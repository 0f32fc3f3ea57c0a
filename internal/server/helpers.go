package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// QueryBool reads a boolean query parameter, treating absence as false.
func QueryBool(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// ValidDateParam reports whether a date query parameter is empty or a valid
// YYYY-MM-DD value.
func ValidDateParam(v string) bool {
	if v == "" {
		return true
	}
	if len(v) != 10 {
		return false
	}
	_, err := strconv.Atoi(v[:4])
	return err == nil && v[4] == '-' && v[7] == '-'
}
