package coinbase

import (
	"errors"
	"fmt"

	"github.com/sig-0/btcrates/provider"
	"github.com/sig-0/btcrates/storage/types"
)

var (
	// Conversion query rejections
	ErrUnsupportedBase = provider.ErrUnsupportedBase
	ErrUnsupportedTerm = provider.ErrUnsupportedTerm
	ErrRateUnavailable = provider.ErrRateUnavailable

	// ErrCatalogUnavailable is attached to term rejections when the
	// currency catalog could not be loaded at construction
	ErrCatalogUnavailable = provider.ErrCatalogUnavailable

	// Upstream failures
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnexpectedStatus  = errors.New("unexpected status code")

	errInvalidBaseURL  = errors.New("invalid base URL")
	errInvalidTimeout  = errors.New("invalid timeout")
	errInvalidInterval = errors.New("invalid interval")
	errInvalidMaxAge   = errors.New("invalid max age")
)

// ConversionError is returned when a conversion query is rejected.
// It matches its kind (ErrUnsupportedBase, ErrUnsupportedTerm, ErrRateUnavailable)
// and its cause, if any, through errors.Is
type ConversionError struct {
	Err    error // the rejection kind
	Cause  error // the underlying failure, if any
	Base   types.Currency
	Target types.Currency
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("%s: %s -> %s", e.Err, e.Base, e.Target)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

func (e *ConversionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}

	return []error{e.Err, e.Cause}
}
