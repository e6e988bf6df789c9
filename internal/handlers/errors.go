package handlers

import (
	"errors"
	"net/http"

	"eventtix/internal/status"

	"github.com/pocketbase/pocketbase/apis"
)

// apiError maps service errors onto HTTP responses. Anything unmapped is
// a 500 with the detail kept server-side.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrTierNotFound),
		errors.Is(err, status.ErrPaymentNotFound),
		errors.Is(err, status.ErrTicketNotFound):
		return apis.NewNotFoundError(err.Error(), nil)

	case errors.Is(err, status.ErrNotOwner):
		return apis.NewForbiddenError(err.Error(), nil)

	case errors.Is(err, status.ErrEventSoldOut),
		errors.Is(err, status.ErrInsufficientInventory),
		errors.Is(err, status.ErrCapacityExceeded),
		errors.Is(err, status.ErrPaymentFailed),
		errors.Is(err, status.ErrTicketNotPaid),
		errors.Is(err, status.ErrNoPendingTransfer),
		errors.Is(err, status.ErrInvalidClaimCode),
		errors.Is(err, status.ErrAlreadyScanned),
		errors.Is(err, status.ErrEventEnded),
		errors.Is(err, status.ErrInvalidQR),
		errors.Is(err, status.ErrExpiredQR),
		errors.Is(err, status.ErrUnsupportedCurrency),
		errors.Is(err, status.ErrUnsupportedProvider):
		return apis.NewBadRequestError(err.Error(), nil)

	case errors.Is(err, status.ErrVerifyInProgress):
		return apis.NewApiError(http.StatusTooManyRequests, err.Error(), nil)

	default:
		return apis.NewInternalServerError("internal error", err)
	}
}
