package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/faithdive/faithdive/internal/scripture"
	"github.com/faithdive/faithdive/internal/store"
	"github.com/faithdive/faithdive/internal/web/auth"
	"github.com/faithdive/faithdive/internal/web/middleware"
	"github.com/faithdive/faithdive/internal/web/request"
	"github.com/faithdive/faithdive/internal/web/response"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	response.JSON(w, status, v)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	response.Error(w, status, code, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	response.NotFound(w, message)
}

// writeError maps an error to its HTTP status. notFound is the message used
// for store.ErrNotFound and scripture.ErrNotFound.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var ve *store.ValidationError
	var br *request.BadRequestError

	switch {
	case errors.As(err, &ve):
		response.ValidationError(w, ve)
	case errors.As(err, &br):
		response.BadRequest(w, br.Message)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, scripture.ErrNotFound):
		response.NotFound(w, notFound)
	case errors.Is(err, store.ErrUniqueViolation):
		writeErrorCode(w, http.StatusConflict, "", "Resource already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		response.Unauthorized(w, "Invalid password")
	case errors.Is(err, auth.ErrAdminDisabled):
		writeErrorCode(w, http.StatusServiceUnavailable, "admin_disabled", "Admin access is not configured")
	case errors.Is(err, scripture.ErrMissingAPIKey):
		writeErrorCode(w, http.StatusServiceUnavailable, "scripture_unavailable", "Scripture service is not configured")
	case isUpstream(err):
		a.logger.Warn("scripture API failure", middleware.RequestIDField(r.Context()), zap.Error(err))
		writeErrorCode(w, http.StatusBadGateway, "", "Scripture service is unavailable")
	case errors.Is(err, context.Canceled):
		// client went away
		a.logger.Debug("request cancelled", middleware.RequestIDField(r.Context()))
	default:
		a.logger.Error("request failed",
			middleware.RequestIDField(r.Context()),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		response.InternalError(w)
	}
}

// isUpstream reports whether err came from the scripture API rather than
// from this service
func isUpstream(err error) bool {
	var apiErr *scripture.APIError
	if errors.As(err, &apiErr) {
		return true
	}
	var upstream *upstreamError
	return errors.As(err, &upstream) || errors.Is(err, context.DeadlineExceeded)
}

// upstreamError marks transport failures talking to the scripture API
type upstreamError struct {
	err error
}

func (e *upstreamError) Error() string { return e.err.Error() }
func (e *upstreamError) Unwrap() error { return e.err }

// upstream wraps scripture client errors that are not already typed
func upstream(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *scripture.APIError
	if errors.As(err, &apiErr) || errors.Is(err, scripture.ErrMissingAPIKey) || errors.Is(err, context.Canceled) {
		return err
	}
	return &upstreamError{err: err}
}
