package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/polly/internal/credentials"
	"github.com/wolfeidau/polly/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"
)

// RefreshPath is the token refresh endpoint relative to the base URL.
const RefreshPath = "api/users/token/refresh/"

const maxBodySize = 10 << 20

var (
	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrTokenStorage is returned when a refreshed token cannot be persisted.
	ErrTokenStorage = errors.New("token storage failure")
)

// Gateway sends requests to the backend, attaching the stored access token
// and transparently refreshing it once when the backend answers 401.
type Gateway struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     credentials.TokenStore
	metrics    *telemetry.Metrics
}

// New creates a gateway for the backend at baseURL.
func New(baseURL string, httpClient *http.Client, tokens credentials.TokenStore) (*Gateway, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: scheme and host are required", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Gateway{
		baseURL:    u,
		httpClient: httpClient,
		tokens:     tokens,
		metrics:    telemetry.GetMetrics(),
	}, nil
}

// Dispatch sends req and returns the backend response.
//
// A 401 on an authenticated request triggers a single refresh with the
// stored refresh token. On success the new access token is stored, the
// refresh token is kept, and the original request is sent again exactly
// once; that second response is returned whatever its status. When the
// backend rejects the refresh token both tokens are cleared and the
// original 401 is returned. When the refresh endpoint answers 5xx the
// tokens are kept and that 5xx response is returned instead of the 401.
// A refreshed token is only stored while the pair it was minted from is
// still stored; after a logout or a new login it is dropped and the
// original 401 is returned.
//
// HTTP error statuses are never returned as Go errors; errors mean the
// request could not be completed at all.
func (g *Gateway) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	if req.Anonymous {
		return g.send(ctx, req, body, "")
	}

	resp, err := g.send(ctx, req, body, g.readToken(g.tokens.ReadAccess, "access"))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	refresh := g.readToken(g.tokens.ReadRefresh, "refresh")
	if refresh == "" {
		return resp, nil
	}

	access, refreshResp, err := g.refresh(ctx, refresh)
	if err != nil {
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusInternalServerError:
			log.Warn().Err(err).Msg("token refresh unavailable, keeping tokens")
			return refreshResp, nil
		case errors.As(err, &apiErr), errors.Is(err, ErrMalformedResponse):
			log.Warn().Err(err).Msg("token refresh rejected, clearing tokens")
			if clearErr := g.tokens.Clear(); clearErr != nil {
				log.Error().Err(clearErr).Msg("failed to clear tokens")
			}
			return resp, nil
		default:
			return nil, fmt.Errorf("token refresh failed: %w", err)
		}
	}

	if err := g.tokens.UpdateAccess(refresh, access); err != nil {
		if errors.Is(err, credentials.ErrTokenChanged) {
			log.Debug().Msg("tokens changed during refresh, dropping refreshed token")
			return resp, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenStorage, err)
	}

	g.metrics.RetriesTotal.Add(ctx, 1)

	return g.send(ctx, req, body, access)
}

// refresh exchanges the refresh token for a new access token. A non-2xx
// refresh response is returned along with its *APIError.
func (g *Gateway) refresh(ctx context.Context, refresh string) (string, *Response, error) {
	g.metrics.RefreshTotal.Add(ctx, 1)

	req := &Request{
		Method:    http.MethodPost,
		Path:      RefreshPath,
		Body:      map[string]string{"refresh": refresh},
		Anonymous: true,
	}
	body, err := encodeBody(req.Body)
	if err != nil {
		return "", nil, err
	}

	resp, err := g.send(ctx, req, body, "")
	if err != nil {
		g.metrics.RefreshFailuresTotal.Add(ctx, 1)
		return "", nil, err
	}

	var out struct {
		Access string `json:"access"`
	}
	if err := resp.Decode(&out); err != nil {
		g.metrics.RefreshFailuresTotal.Add(ctx, 1)
		return "", resp, err
	}
	if out.Access == "" {
		g.metrics.RefreshFailuresTotal.Add(ctx, 1)
		return "", resp, fmt.Errorf("%w: refresh response has no access token", ErrMalformedResponse)
	}

	log.Debug().Msg("access token refreshed")

	return out.Access, resp, nil
}

// send performs one HTTP round trip.
func (g *Gateway) send(ctx context.Context, req *Request, body []byte, access string) (*Response, error) {
	target := g.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(req.Path, "/"), RawQuery: req.Query.Encode()})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestID := newRequestID()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}

	started := time.Now()

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		log.Debug().Err(err).
			Str("method", req.Method).
			Str("path", req.Path).
			Str("request_id", requestID).
			Msg("request failed")
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	elapsed := time.Since(started)
	attrs := metric.WithAttributes(
		attribute.String("method", req.Method),
		attribute.Int("status", httpResp.StatusCode),
	)
	g.metrics.RequestsTotal.Add(ctx, 1, attrs)
	g.metrics.RequestDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)

	log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Dur("duration", elapsed).
		Str("request_id", requestID).
		Msg("request")

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// readToken returns the stored token or "" when it is absent or the store
// cannot be read.
func (g *Gateway) readToken(read func() (string, error), kind string) string {
	tok, err := read()
	if err != nil {
		if !errors.Is(err, credentials.ErrTokenNotFound) {
			log.Warn().Err(err).Str("token", kind).Msg("failed to read token, continuing without it")
		}
		return ""
	}
	return tok
}

func encodeBody(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return data, nil
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
