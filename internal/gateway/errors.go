package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	// Detail is the server supplied "detail" message, if any.
	Detail string
	// Fields holds per-field validation messages, e.g. {"username": ["..."]}.
	Fields map[string][]string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Message returns a short user facing message: the server detail, else the
// first field validation message, else fallback.
func (e *APIError) Message(fallback string) string {
	if e.Detail != "" {
		return e.Detail
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if msgs := e.Fields[k]; len(msgs) > 0 {
			if k == "non_field_errors" {
				return msgs[0]
			}
			return k + ": " + msgs[0]
		}
	}

	return fallback
}

// newAPIError builds an APIError from a response body, tolerating bodies
// that are not JSON objects.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return apiErr
	}

	for k, v := range raw {
		if k == "detail" {
			_ = json.Unmarshal(v, &apiErr.Detail)
			continue
		}

		var msgs []string
		if err := json.Unmarshal(v, &msgs); err != nil {
			var msg string
			if err := json.Unmarshal(v, &msg); err != nil {
				continue
			}
			msgs = []string{msg}
		}

		if apiErr.Fields == nil {
			apiErr.Fields = make(map[string][]string)
		}
		apiErr.Fields[k] = msgs
	}

	return apiErr
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsAuthError reports whether the server rejected the credentials (401 or 403).
func IsAuthError(err error) bool {
	switch StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// IsTransient reports whether err is a network failure, timeout or 5xx
// response: the kind of failure a later attempt may not see.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if status := StatusCode(err); status != 0 {
		return status >= http.StatusInternalServerError
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	// *url.Error from http.Client implements net.Error
	var netErr net.Error
	return errors.As(err, &netErr)
}
