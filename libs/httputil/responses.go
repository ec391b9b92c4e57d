// Package httputil provides HTTP handler middleware and response helpers.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/mzansicare/backend/libs/golog"
)

// Common HTTP methods.
const (
	Get     = "GET"
	Post    = "POST"
	Put     = "PUT"
	Patch   = "PATCH"
	Delete  = "DELETE"
	Options = "OPTIONS"
)

// JSONResponse writes a JSON body with the provided status code.
func JSONResponse(w http.ResponseWriter, statusCode int, res interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		golog.Errorf("httputil: failed to encode JSON response: %s", err)
	}
}

type errorBody struct {
	Error errorMessage `json:"error"`
}

type errorMessage struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// JSONError writes a JSON error envelope with the provided status code.
func JSONError(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, &errorBody{Error: errorMessage{Message: message}})
}

// JSONBadRequest writes a 400 response with the provided message.
func JSONBadRequest(w http.ResponseWriter, message string) {
	JSONError(w, http.StatusBadRequest, message)
}

// JSONNotFound writes a 404 response with the provided message.
func JSONNotFound(w http.ResponseWriter, message string) {
	JSONError(w, http.StatusNotFound, message)
}

// JSONInternalError logs the error and writes a generic 500 response. The
// error detail is never returned to the client.
func JSONInternalError(w http.ResponseWriter, err error) {
	golog.Logf(2, golog.ERR, "httputil: internal error: %s", err)
	JSONError(w, http.StatusInternalServerError, "Internal error")
}

// JSONSuccess writes the standard {"success": true} body.
func JSONSuccess(w http.ResponseWriter) {
	JSONResponse(w, http.StatusOK, map[string]bool{"success": true})
}

// DecodeRequestData decodes a JSON request body into the provided value.
func DecodeRequestData(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
