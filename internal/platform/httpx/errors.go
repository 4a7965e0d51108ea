// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/fomet/fomet/internal/recordstore"
	"github.com/fomet/fomet/internal/shared"
)

// Sentinel errors for handlers without a domain error to hand.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		transport *recordstore.TransportError
		malformed *recordstore.MalformedResponse
		rejection *recordstore.BusinessRejection
	)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.As(err, &rejection):
		Problem(w, http.StatusUnprocessableEntity, "Rejected", rejection.Message)
	case errors.As(err, &transport), errors.As(err, &malformed), errors.Is(err, recordstore.ErrNotConfigured):
		Problem(w, http.StatusBadGateway, "Bad Gateway", recordstore.UserMessage(err, ""))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
