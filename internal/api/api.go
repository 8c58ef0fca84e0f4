// Package api binds the polly REST endpoints to typed Go calls.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/wolfeidau/polly/internal/gateway"
)

// Dispatcher sends a request to the backend. *gateway.Gateway implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *gateway.Request) (*gateway.Response, error)
}

// Client groups the endpoint families.
type Client struct {
	Users *Users
	Polls *Polls
	Admin *Admin
}

// New creates a client over d.
func New(d Dispatcher) *Client {
	return &Client{
		Users: &Users{d: d},
		Polls: &Polls{d: d},
		Admin: &Admin{d: d},
	}
}

// call dispatches req and decodes a successful body into T.
func call[T any](ctx context.Context, d Dispatcher, req *gateway.Request) (T, error) {
	var out T

	resp, err := d.Dispatch(ctx, req)
	if err != nil {
		return out, err
	}

	if err := resp.Decode(&out); err != nil {
		return out, err
	}

	return out, nil
}

// exec dispatches req and only checks the status.
func exec(ctx context.Context, d Dispatcher, req *gateway.Request) error {
	resp, err := d.Dispatch(ctx, req)
	if err != nil {
		return err
	}
	return resp.Err()
}

func del(path string) *gateway.Request {
	return &gateway.Request{Method: http.MethodDelete, Path: path}
}

func put(path string, body any) *gateway.Request {
	return &gateway.Request{Method: http.MethodPut, Path: path, Body: body}
}

func patch(path string, body any) *gateway.Request {
	return &gateway.Request{Method: http.MethodPatch, Path: path, Body: body}
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}
