package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hema22923/AgriConnect/internal/assistant"
	"github.com/hema22923/AgriConnect/internal/cache"
	"github.com/hema22923/AgriConnect/internal/domain"
)

const (
	codeInvalidRequest    = "INVALID_REQUEST"
	codeInvalidArgument   = "INVALID_ARGUMENT"
	codeNotFound          = "NOT_FOUND"
	codeAuthRequired      = "AUTH_REQUIRED"
	codeForbidden         = "FORBIDDEN"
	codeAlreadyExists     = "ALREADY_EXISTS"
	codeEmptyCart         = "EMPTY_CART"
	codeOrderFailed       = "ORDER_FAILED"
	codeRatingFailed      = "RATING_FAILED"
	codeIllegalTransition = "ILLEGAL_TRANSITION"
	codeNotDelivered      = "NOT_DELIVERED"
	codeAlreadyRated      = "ALREADY_RATED"
	codeInsufficientStock = "INSUFFICIENT_STOCK"
	codeConflict          = "CONFLICT"
	codeUnavailable       = "UNAVAILABLE"
	codeTimeout           = "TIMEOUT"
	codeInternal          = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		requestLogger(r).Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts a service error to a status code and machine code.
// The order matters: ORDER_FAILED and RATING_FAILED wrap store errors that
// may themselves match a more generic sentinel.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, domain.ErrOrderFailed):
		status, code = http.StatusConflict, codeOrderFailed
	case errors.Is(err, domain.ErrRatingFailed):
		status, code = http.StatusConflict, codeRatingFailed
	case errors.Is(err, domain.ErrAuthRequired):
		status, code = http.StatusUnauthorized, codeAuthRequired
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, codeForbidden
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, codeNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code = http.StatusBadRequest, codeInvalidArgument
	case errors.Is(err, domain.ErrAlreadyExists):
		status, code = http.StatusConflict, codeAlreadyExists
	case errors.Is(err, domain.ErrEmptyCart):
		status, code = http.StatusBadRequest, codeEmptyCart
	case errors.Is(err, domain.ErrIllegalTransition):
		status, code = http.StatusConflict, codeIllegalTransition
	case errors.Is(err, domain.ErrNotDelivered):
		status, code = http.StatusConflict, codeNotDelivered
	case errors.Is(err, domain.ErrAlreadyRated):
		status, code = http.StatusConflict, codeAlreadyRated
	case errors.Is(err, domain.ErrInsufficientStock):
		status, code = http.StatusConflict, codeInsufficientStock
	case errors.Is(err, cache.ErrCartConflict):
		status, code = http.StatusConflict, codeConflict
	case errors.Is(err, assistant.ErrUnavailable):
		status, code = http.StatusServiceUnavailable, codeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, codeTimeout
	default:
		requestLogger(r).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("unhandled service error")
		respondError(w, r, http.StatusInternalServerError, codeInternal, "internal server error")
		return
	}

	respondError(w, r, status, code, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body")
		return false
	}
	return true
}
