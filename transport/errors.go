package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-mailbox/core"
)

func transportError(
	message string,
	category goerrors.Category,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(transportStatusCode(textCode)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	textCode string,
	message string,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(transportStatusCode(textCode)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// classifySendError maps an http client failure onto a delivery text code.
func classifySendError(err error) (goerrors.Category, string) {
	var netErr net.Error
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, ErrRestrictedAddress):
		return goerrors.CategoryAuthz, core.DeliveryErrorRestrictedAddress
	case errors.Is(err, context.DeadlineExceeded):
		return goerrors.CategoryExternal, core.DeliveryErrorTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return goerrors.CategoryExternal, core.DeliveryErrorTimeout
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return goerrors.CategoryExternal, core.DeliveryErrorConnectionReset
	case errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH):
		return goerrors.CategoryExternal, core.DeliveryErrorHost
	default:
		return goerrors.CategoryExternal, core.DeliveryErrorProtocol
	}
}

func transportStatusCode(textCode string) int {
	switch textCode {
	case core.DeliveryErrorTimeout:
		return http.StatusGatewayTimeout
	case core.DeliveryErrorRestrictedAddress:
		return http.StatusForbidden
	case core.DeliveryErrorProtocol:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

var (
	errMissingHost       = errors.New("transport: url host is required")
	errUnsupportedScheme = errors.New("transport: url scheme must be http or https")
)
