// Package response renders JSON bodies and the error envelope shared by every
// API endpoint.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/faithdive/faithdive/internal/store"
)

// ErrorResponse is the body of every non-validation error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ValidationErrorResponse reports invalid fields
type ValidationErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields"`
}

// MessageResponse acknowledges an action without returning an entity
type MessageResponse struct {
	Message string `json:"message"`
}

// JSON writes v with the given status
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with status 200
func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

// Message writes {"message": msg} with status 200
func Message(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusOK, MessageResponse{Message: msg})
}

// Error writes the error envelope. An empty code is derived from status.
func Error(w http.ResponseWriter, status int, code, message string) {
	if code == "" {
		code = errorCodeFromStatus(status)
	}
	JSON(w, status, ErrorResponse{Error: code, Message: message})
}

// ValidationError writes a 422 listing the invalid fields
func ValidationError(w http.ResponseWriter, ve *store.ValidationError) {
	JSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
		Error:   "validation_failed",
		Message: ve.Error(),
		Fields:  ve.Fields,
	})
}

// BadRequest renders a 400
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, "", message)
}

// NotFound renders a 404
func NotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Resource not found"
	}
	Error(w, http.StatusNotFound, "", message)
}

// Unauthorized renders a 401
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Authentication required"
	}
	Error(w, http.StatusUnauthorized, "", message)
}

// InternalError renders a 500 without exposing err
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "", "Internal server error")
}

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusBadGateway:
		return "bad_gateway"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	case http.StatusGatewayTimeout:
		return "gateway_timeout"
	default:
		return "error"
	}
}
