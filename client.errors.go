package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// TransportError wraps network level failures: the API was not reached
// or the connection broke before a response was read.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("api %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is returned for any non 2xx API response. Message holds the
// `message` field of the body when the API sent one.
type HTTPError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s %s: status %d", e.Method, e.Path, e.Status)
}

// DecodeError reports a response body that does not match the expected contract.
type DecodeError struct {
	Method string
	Path   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("api %s %s: unexpected response: %v", e.Method, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// OperationError is what the stores return after a failed action. Message
// is the normalized text shown to the user, Err the original failure.
type OperationError struct {
	Op      string
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	return e.Op + ": " + e.Message
}

func (e *OperationError) Unwrap() error { return e.Err }

// ErrorMessage returns the message the server attached to err when
// there is one, otherwise the fallback of the failed action.
func ErrorMessage(err error, fallback string) string {
	var opErr *OperationError
	if errors.As(err, &opErr) && opErr.Message != "" {
		return opErr.Message
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && strings.TrimSpace(httpErr.Message) != "" {
		return httpErr.Message
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs.Error()
	}
	return fallback
}

// HTTPStatus returns the API status code carried by err or 0.
func HTTPStatus(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// IsNotFound reports whether the API answered 404.
func IsNotFound(err error) bool {
	return HTTPStatus(err) == http.StatusNotFound
}

// IsUnauthorized reports whether the API rejected the bearer token.
func IsUnauthorized(err error) bool {
	return HTTPStatus(err) == http.StatusUnauthorized
}
