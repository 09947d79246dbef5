package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies a data source failure.
type Kind int

const (
	// KindUnsupported the asset cannot be served by the source.
	KindUnsupported Kind = iota + 1
	// KindRateLimited the upstream throttled us.
	KindRateLimited
	// KindTransport network, timeout or unexpected HTTP failure.
	KindTransport
	// KindMalformed the payload did not match the expected schema.
	KindMalformed
	// KindEmpty the upstream returned no data points.
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindRateLimited:
		return "rate_limited"
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Retryable reports whether another attempt may succeed.
func (k Kind) Retryable() bool {
	return k == KindRateLimited || k == KindTransport
}

// ProviderError is the only error type returned by Source.Fetch.
type ProviderError struct {
	Provider string
	Kind     Kind
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func newProviderError(provider string, kind Kind, err error, format string, args ...any) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Err:      err,
	}
}

// KindOf extracts the failure kind from err.
func KindOf(err error) (Kind, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a ProviderError of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// asProviderError keeps ProviderErrors as they are and files anything else
// (context errors, network errors, unknown SDK failures) under provider as transport.
func asProviderError(provider string, err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	return newProviderError(provider, KindTransport, err, "request failed")
}

// isDecodeError reports JSON syntax and type errors, truncated documents included.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func containsAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
