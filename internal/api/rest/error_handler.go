package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	domainErrors "github.com/marketbid/auction-backend/internal/domain/errors"
)

// mapError converts any error into an HTTP status plus a wire error body.
// AppError carries its own status; everything else degrades to a safe class.
func mapError(err error) (int, errorBody) {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode, errorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make(map[string]string, len(validationErrs))
		for _, fe := range validationErrs {
			fields[fe.Field()] = fmt.Sprintf("failed %s validation", fe.Tag())
		}
		return http.StatusBadRequest, errorBody{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Details: fields,
		}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return http.StatusBadRequest, errorBody{
			Code:    "INVALID_JSON",
			Message: "invalid JSON syntax",
			Details: "error at position " + strconv.FormatInt(syntaxErr.Offset, 10),
		}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return http.StatusBadRequest, errorBody{
			Code:    "TYPE_MISMATCH",
			Message: fmt.Sprintf("invalid type for field %q", typeErr.Field),
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, errorBody{
			Code:    "RESOURCE_NOT_FOUND",
			Message: "resource not found",
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout, errorBody{
			Code:    "REQUEST_TIMEOUT",
			Message: "request timed out",
		}
	}

	return http.StatusInternalServerError, errorBody{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}
}

// retryAfterSeconds suggests a Retry-After value for throttled callers
func retryAfterSeconds(err error) int {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) && appErr.Code == "RATE_LIMIT_EXCEEDED" {
		return 60
	}
	return 0
}
