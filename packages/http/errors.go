package http

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// ResolutionError is a hard failure while preparing a multipart field. No
// request is sent when one occurs.
type ResolutionError struct {
	Field string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve field %q: %v", e.Field, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failure of the outer request: refused or reset
// connections and idle timeouts.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request was aborted by the idle timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// IsTimeout reports whether err is a transport error caused by an idle timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout()
}
