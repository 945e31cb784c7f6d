package render

import (
	"errors"
	"fmt"
)

// ErrServiceNotFound is returned when no service matches the requested name
var ErrServiceNotFound = errors.New("service not found")

// APIError is a non-2xx response from the platform. Status and Body are
// kept verbatim so the user can see exactly what the platform said.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d", e.StatusCode)
	}
	body := e.Body
	if body == "" {
		body = "Unknown Error"
	}
	return fmt.Sprintf("request error: %s %s: %s: %s", e.Method, e.Path, status, body)
}

// DecodeError is a response body that does not match the expected schema.
type DecodeError struct {
	Path string
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to parse json from %s: %v\n%s", e.Path, e.Err, e.Body)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransportError is a failure below HTTP: DNS, connect, TLS or timeout.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("perform request %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
