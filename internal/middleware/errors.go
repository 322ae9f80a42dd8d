package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/feetoken/internal/asset"
	"github.com/congo-pay/feetoken/internal/ledger"
	"github.com/congo-pay/feetoken/internal/tokenerr"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Requested string `json:"requested,omitempty"`
	Limit     string `json:"limit,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler renders errors as ErrorResponse. Token failures map to their
// stable code; fiber errors keep their status.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, body := Classify(err)
		body.RequestID = RequestIDFrom(c)
		if status >= http.StatusInternalServerError && logger != nil {
			logger.Error("request failed", slog.String("path", c.Path()), slog.String("request_id", body.RequestID), slog.Any("error", err))
			body.Message = http.StatusText(status)
		}
		return c.Status(status).JSON(body)
	}
}

// Classify maps err to an HTTP status and response body.
func Classify(err error) (int, ErrorResponse) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, ErrorResponse{Code: codeForStatus(fe.Code), Message: fe.Message}
	}

	body := ErrorResponse{Code: tokenerr.Code(err), Message: err.Error()}
	switch {
	case errors.Is(err, asset.ErrUnknownAsset):
		body.Code = "unknown_asset"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		body.Code = "insufficient_funds"
	}
	var ae *tokenerr.AmountError
	if errors.As(err, &ae) {
		body.Requested = ae.Requested.Dec()
		body.Limit = ae.Limit.Dec()
	}
	return statusFor(err), body
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tokenerr.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, tokenerr.ErrEnforcedPause),
		errors.Is(err, tokenerr.ErrExpectedPause),
		errors.Is(err, tokenerr.ErrReentrantCall),
		errors.Is(err, tokenerr.ErrRenounceDisabled):
		return http.StatusConflict
	case errors.Is(err, asset.ErrUnknownAsset):
		return http.StatusNotFound
	case errors.Is(err, tokenerr.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, tokenerr.ErrInsufficientUnfrozenBalance),
		errors.Is(err, tokenerr.ErrInsufficientAllowance),
		errors.Is(err, tokenerr.ErrFeeRateTooHigh),
		errors.Is(err, tokenerr.ErrSameOwner),
		errors.Is(err, tokenerr.ErrSelfRecovery):
		return http.StatusUnprocessableEntity
	case errors.Is(err, tokenerr.ErrInvalidAddress),
		errors.Is(err, tokenerr.ErrInvalidAmount),
		errors.Is(err, tokenerr.ErrZeroTransfer):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		if status >= http.StatusInternalServerError {
			return "internal"
		}
		return "error"
	}
}
