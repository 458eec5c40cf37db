package rdapclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrServiceNotFound matches any *ServiceNotFoundError under errors.Is.
var ErrServiceNotFound = errors.New("no RDAP service found")

// ServiceNotFoundError reports that the bootstrap registry has no service
// authoritative for Query. Callers typically fall back to a parent domain.
type ServiceNotFoundError struct {
	Query string
}

func (e *ServiceNotFoundError) Error() string {
	return fmt.Sprintf("no RDAP service found for %s", e.Query)
}

// Is reports whether target is ErrServiceNotFound.
func (e *ServiceNotFoundError) Is(target error) bool { return target == ErrServiceNotFound }

// TransportError is a failed fetch: either a non-2xx status (StatusCode set)
// or a network failure (Err set).
type TransportError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error

	header http.Header
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rdap GET %s: %v", e.URL, e.Err)
	}
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("rdap GET %s: %s", e.URL, status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotFound reports whether the service answered 404.
func (e *TransportError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// ErrUnexpectedObject indicates the RDAP response was not the expected object class.
type ErrUnexpectedObject string

func (e ErrUnexpectedObject) Error() string {
	return fmt.Sprintf("unexpected RDAP objectClassName, want %s", string(e))
}

// IsNotFound reports whether err means the registry or the service had
// nothing for the query: a ServiceNotFoundError or an HTTP 404.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrServiceNotFound) {
		return true
	}
	var te *TransportError
	return errors.As(err, &te) && te.NotFound()
}
