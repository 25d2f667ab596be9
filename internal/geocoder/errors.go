package geocoder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorType classifies geocoding failures.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeNotFound
	ErrorTypeRateLimit
	ErrorTypeQuotaExceeded
	ErrorTypeTimeout
	ErrorTypeInvalidRequest
	ErrorTypeNetwork
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeQuotaExceeded:
		return "quota_exceeded"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeInvalidRequest:
		return "invalid_request"
	case ErrorTypeNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// GeocodeError is the error returned by every provider in this package.
type GeocodeError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *GeocodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *GeocodeError) Unwrap() error {
	return e.Err
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown for foreign errors.
func TypeOf(err error) ErrorType {
	var geoErr *GeocodeError
	if errors.As(err, &geoErr) {
		return geoErr.Type
	}

	return ErrorTypeUnknown
}

// IsNotFound reports whether the provider had no match for the address.
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// ClassifyHTTPError maps a provider HTTP status to a GeocodeError.
func ClassifyHTTPError(statusCode int) *GeocodeError {
	switch statusCode {
	case http.StatusTooManyRequests:
		return &GeocodeError{Type: ErrorTypeRateLimit, Message: "rate limit reached"}
	case http.StatusForbidden, http.StatusUnauthorized:
		return &GeocodeError{Type: ErrorTypeQuotaExceeded, Message: "quota exceeded or access denied"}
	case http.StatusBadRequest:
		return &GeocodeError{Type: ErrorTypeInvalidRequest, Message: "invalid request"}
	case http.StatusNotFound:
		return &GeocodeError{Type: ErrorTypeNotFound, Message: "location not found"}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &GeocodeError{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("service unavailable (status %d)", statusCode),
		}
	default:
		return &GeocodeError{Type: ErrorTypeUnknown, Message: fmt.Sprintf("HTTP error %d", statusCode)}
	}
}

// classifyTransportError wraps an error returned by http.Client.Do.
func classifyTransportError(provider string, err error) *GeocodeError {
	errType := ErrorTypeNetwork

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		errType = ErrorTypeTimeout
	}

	return &GeocodeError{Type: errType, Message: provider + ": request failed", Err: err}
}
