package httpapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// APIError is the JSON body of every non-2xx response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewValidationError(field, message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field %s: %s", field, message),
	}
}

func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewNoPositionError reports that neither the provider nor the cache had a
// usable fix.
func NewNoPositionError(assetID string, rateLimited bool) *APIError {
	err := &APIError{
		Status:  http.StatusNotFound,
		Code:    "NO_POSITION",
		Message: fmt.Sprintf("no position is known for %s", assetID),
	}
	if rateLimited {
		err.Details = "tracking provider is rate limiting this asset"
	}
	return err
}

func NewUnauthorizedError() *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Code:    "UNAUTHORIZED",
		Message: "invalid webhook secret",
	}
}

// ErrorHandler renders errors returned by handlers as APIError JSON.
// Usage: e.HTTPErrorHandler = ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	switch e := err.(type) {
	case *APIError:
		apiErr = e
	case *echo.HTTPError:
		apiErr = &APIError{
			Status:  e.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", e.Message),
		}
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled handler error")
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "INTERNAL_ERROR",
			Message: "an unexpected error occurred",
		}
	}

	if err := c.JSON(apiErr.Status, apiErr); err != nil {
		log.Error().Err(err).Msg("write error response failed")
	}
}

// RespondWithError writes err directly so middleware sees the final status.
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
