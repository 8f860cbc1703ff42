// Package api contains the JSON encoding helpers of the HTTP API.
package api

import (
	"encoding/json"
	"net/http"
)

// JSONError encodes err as JSON to w.
// A statusCode below 1 is sent as an internal server error.
func JSONError(w http.ResponseWriter, err error, statusCode int) {
	jsonErr := &struct {
		Err string `json:"error"`
	}{Err: err.Error()}
	if statusCode < 1 {
		statusCode = http.StatusInternalServerError
	}
	JSON(w, jsonErr, statusCode)
}

// JSON encodes v as JSON to w with statusCode.
// A statusCode below 1 is sent as OK.
func JSON(w http.ResponseWriter, v any, statusCode int) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode < 1 {
		statusCode = http.StatusOK
	}
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(v)
}
