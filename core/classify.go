package core

import (
	"context"
	"errors"
	"net/http"
)

// Classify maps one transport exchange onto the delivery outcome taxonomy.
// Unknown failures are treated as transient.
func Classify(res TransportResponse, err error) DeliveryResult {
	if err != nil {
		return classifyTransportError(err)
	}

	code := res.StatusCode
	switch {
	case code >= 200 && code < 300:
		return DeliveryResult{Outcome: OutcomeDelivered, Reason: ReasonOK, StatusCode: code}
	case code == http.StatusConflict:
		return DeliveryResult{Outcome: OutcomeRejected, Reason: ReasonConflict, StatusCode: code}
	case code >= http.StatusInternalServerError && code < 600:
		return DeliveryResult{Outcome: OutcomeRetry, Reason: ReasonServerError, StatusCode: code}
	case code == http.StatusBadRequest:
		return DeliveryResult{Outcome: OutcomeRejected, Reason: ReasonBadRequest, StatusCode: code}
	case code == http.StatusUnauthorized:
		return DeliveryResult{Outcome: OutcomeRejected, Reason: ReasonUnauthorized, StatusCode: code}
	case code == http.StatusNotFound:
		return DeliveryResult{Outcome: OutcomeRejected, Reason: ReasonNotFound, StatusCode: code}
	}
	return DeliveryResult{Outcome: OutcomeRetry, Reason: ReasonAPIError, StatusCode: code}
}

func classifyTransportError(err error) DeliveryResult {
	switch TransportErrorCode(err) {
	case DeliveryErrorRestrictedAddress:
		return DeliveryResult{Outcome: OutcomeRejected, Reason: ReasonRestricted, Err: err}
	case DeliveryErrorTimeout, DeliveryErrorConnectionReset:
		return DeliveryResult{Outcome: OutcomeRetry, Reason: ReasonTimeoutReset, Err: err}
	case DeliveryErrorHost:
		return DeliveryResult{Outcome: OutcomeRetry, Reason: ReasonHostError, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return DeliveryResult{Outcome: OutcomeRetry, Reason: ReasonTimeoutReset, Err: err}
	}
	return DeliveryResult{Outcome: OutcomeRetry, Reason: ReasonAPIError, Err: err}
}
