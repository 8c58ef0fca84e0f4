package client

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/polly/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"
)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
	CacheDir  string
	Debug     bool
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8000/",
		Timeout:   30 * time.Second,
		Debug:     false,
	}
}

// NewHTTPClient creates the HTTP client used to talk to the polly backend.
//
// The client keeps cookies for the lifetime of the process so cookie based
// sessions set by the backend ride along with the bearer token, caches the
// read-only endpoints matched by CacheablePaths, and records otel spans and
// metrics for every round trip. With Debug set each round trip is logged.
func NewHTTPClient(config Config) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var transport http.RoundTripper = NewCachingTransport(config.CacheDir, http.DefaultTransport)
	if config.Debug {
		transport = logger.NewHTTPRequests(log.Logger, transport)
	}

	return &http.Client{
		Jar:       jar,
		Timeout:   config.Timeout,
		Transport: otelhttp.NewTransport(transport),
	}, nil
}
