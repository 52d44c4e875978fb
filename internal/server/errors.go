package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/ginjaninja78/attendance-dashboard/internal/csvparser"
	"github.com/ginjaninja78/attendance-dashboard/internal/validation"
)

// APIError is the JSON body of every error response.
type APIError struct {
	StatusCode int         `json:"-"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// NewAPIError creates an APIError.
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: message}
}

// WithDetails returns a copy carrying details.
func (e *APIError) WithDetails(details interface{}) *APIError {
	c := *e
	c.Details = details
	return &c
}

var (
	ErrInvalidRequest   = NewAPIError(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrInvalidParameter = NewAPIError(http.StatusBadRequest, "INVALID_PARAMETER", "Invalid parameter value")
	ErrMissingParameter = NewAPIError(http.StatusBadRequest, "MISSING_PARAMETER", "Required parameter is missing")
	ErrNotFound         = NewAPIError(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrValidationFailed = NewAPIError(http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Record validation failed")
	ErrNoDataRows       = NewAPIError(http.StatusUnprocessableEntity, "NO_DATA_ROWS", "Input has no data rows after the header")
	ErrRequestTooLarge  = NewAPIError(http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "Request body is too large")
	ErrSaveFailed       = NewAPIError(http.StatusInternalServerError, "SAVE_FAILED", "Change applied but could not be saved")
	ErrInternalServer   = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// toAPIError maps domain errors onto API errors.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		return ErrValidationFailed.WithDetails(map[string]string{
			"field":   verr.Field,
			"rule":    verr.Rule,
			"message": verr.Message,
		})
	}

	if errors.Is(err, csvparser.ErrNoDataRows) {
		return ErrNoDataRows
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return ErrRequestTooLarge.WithDetails(fmt.Sprintf("limit is %d bytes", tooLarge.Limit))
	}

	return ErrInternalServer.WithDetails(err.Error())
}

// renderError writes err as JSON.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	render.Render(w, r, toAPIError(err))
}
