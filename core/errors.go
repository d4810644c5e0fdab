package core

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	MailboxErrorBadInput              = "MAILBOX_BAD_INPUT"
	MailboxErrorPayloadNotFound       = "MAILBOX_PAYLOAD_NOT_FOUND"
	MailboxErrorRegionNotFound        = "MAILBOX_REGION_NOT_FOUND"
	MailboxErrorStoreFailure          = "MAILBOX_STORE_FAILURE"
	MailboxErrorDeliveryFailed        = "MAILBOX_DELIVERY_FAILED"
	MailboxErrorRestrictedDestination = "MAILBOX_RESTRICTED_DESTINATION"
	MailboxErrorInternal              = "MAILBOX_INTERNAL_ERROR"
)

// Text codes carried by transport failures. The executor classifies on them.
const (
	DeliveryErrorTimeout           = "DELIVERY_TIMEOUT"
	DeliveryErrorConnectionReset   = "DELIVERY_CONNECTION_RESET"
	DeliveryErrorHost              = "DELIVERY_HOST_ERROR"
	DeliveryErrorRestrictedAddress = "DELIVERY_RESTRICTED_ADDRESS"
	DeliveryErrorProtocol          = "DELIVERY_PROTOCOL_ERROR"
)

func mailboxErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureMailboxErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrPayloadNotFound), errors.Is(err, ErrMailboxEmpty):
		return wrapMailboxError(err, goerrors.CategoryNotFound, MailboxErrorPayloadNotFound)
	case errors.Is(err, ErrRegionNotFound):
		return wrapMailboxError(err, goerrors.CategoryNotFound, MailboxErrorRegionNotFound)
	case errors.Is(err, ErrNotConfigured):
		return wrapMailboxError(err, goerrors.CategoryInternal, MailboxErrorInternal)
	case errors.Is(err, ErrInvalidInput):
		return wrapMailboxError(err, goerrors.CategoryBadInput, MailboxErrorBadInput)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
		return ensureMailboxErrorEnvelope(mapped)
	}

	// Anything left reached a service call from a payload store or region
	// directory.
	return wrapMailboxError(err, goerrors.CategoryInternal, MailboxErrorStoreFailure)
}

// wrapMailboxError keeps err as the wrapped source.
func wrapMailboxError(err error, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureMailboxErrorEnvelope(
		goerrors.Wrap(err, category, err.Error()).
			WithTextCode(textCode),
	)
}

func ensureMailboxErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = mailboxHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultMailboxTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultMailboxTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return MailboxErrorBadInput
	case goerrors.CategoryNotFound:
		return MailboxErrorPayloadNotFound
	case goerrors.CategoryExternal:
		return MailboxErrorDeliveryFailed
	default:
		return MailboxErrorInternal
	}
}

func mailboxHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// TransportErrorCode extracts the delivery text code from a transport failure.
func TransportErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return strings.TrimSpace(richErr.TextCode)
	}
	return ""
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return err
}
