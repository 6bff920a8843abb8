package sources

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type FailureKind int

const (
	KindPermanent FailureKind = iota
	KindTransient
)

func (k FailureKind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "permanent"
}

// FetchError tags an adapter error with whether retrying may help.
type FetchError struct {
	Kind FailureKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient marks err as retryable (timeouts, connection resets, 5xx).
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Kind: KindTransient, Err: err}
}

// Permanent marks err as not worth retrying (malformed page, 404).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Kind: KindPermanent, Err: err}
}

// IsTransient reports whether err should be retried. Explicit tags win; otherwise
// deadlines and network timeouts are transient and everything else is permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// HTTPStatusError classifies a non-200 response: 408, 429 and 5xx are transient.
func HTTPStatusError(url string, status int) error {
	err := fmt.Errorf("GET %s: unexpected status %d", url, status)
	if status == 408 || status == 429 || status >= 500 {
		return Transient(err)
	}
	return Permanent(err)
}
