package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Request describes a call to the backend.
type Request struct {
	Method string
	// Path is relative to the gateway base URL, e.g. "api/users/me/".
	Path  string
	Query url.Values
	// Body is encoded as JSON when non-nil.
	Body any
	// Anonymous requests carry no bearer token and never trigger a refresh.
	Anonymous bool
}

// Get is shorthand for an authenticated GET.
func Get(path string) *Request {
	return &Request{Method: http.MethodGet, Path: path}
}

// Post is shorthand for an authenticated POST with a JSON body.
func Post(path string, body any) *Request {
	return &Request{Method: http.MethodPost, Path: path, Body: body}
}

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns an *APIError for non-2xx responses and nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return newAPIError(r.StatusCode, r.Body)
}

// Decode checks the status and unmarshals the body into v. A nil v or an
// empty body (204) only checks the status.
func (r *Response) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}

	if v == nil || len(r.Body) == 0 {
		return nil
	}

	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}
