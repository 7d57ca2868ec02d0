package http

import (
	"errors"
	"net/http"

	"orderflow/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// statusOf maps an error category to the HTTP status of the response.
// Idempotent outcomes never reach here: they are successful results.
func statusOf(category errs.Category) int {
	switch category {
	case errs.CategoryValidation:
		return http.StatusBadRequest
	case errs.CategoryAuthorization:
		return http.StatusForbidden
	case errs.CategoryStateConflict:
		return http.StatusConflict
	case errs.CategoryConcurrency:
		return http.StatusServiceUnavailable
	case errs.CategoryNotFound:
		return http.StatusNotFound
	case errs.CategoryIdempotent:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return c.JSON(httpErr.Code, Error{Code: "INVALID_REQUEST", Message: errorMessage(httpErr)})
	}

	category := errs.CategoryOf(err)
	status := statusOf(category)
	body := Error{Code: category.String(), Message: err.Error()}

	if code, ok := errs.CodeOf(err); ok {
		body.Code = string(code)
	}
	if status == http.StatusInternalServerError {
		c.Logger().Error(err)
		body.Message = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		c.Response().Header().Set("Retry-After", "1")
	}
	return c.JSON(status, body)
}

func errorMessage(err *echo.HTTPError) string {
	if msg, ok := err.Message.(string); ok {
		return msg
	}
	return http.StatusText(err.Code)
}
