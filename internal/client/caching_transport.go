package client

import (
	"net/http"
	"strings"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// CacheablePaths are URL path suffixes whose GET responses are shared by
// every user and may be served from the HTTP cache.
var CacheablePaths = []string{
	"/api/polls/categories/",
}

// CachingTransport sends cacheable requests through an httpcache transport
// and everything else straight to the underlying transport. Per-user
// responses never enter the cache.
type CachingTransport struct {
	cached *httpcache.Transport
	direct http.RoundTripper
}

// NewCachingTransport creates a transport with disk-based caching.
// An empty cacheDir uses an in-memory cache.
func NewCachingTransport(cacheDir string, next http.RoundTripper) *CachingTransport {
	if next == nil {
		next = http.DefaultTransport
	}

	var cache httpcache.Cache
	if cacheDir == "" {
		cache = httpcache.NewMemoryCache()
	} else {
		// Use disk-based cache for persistence across restarts
		cache = diskcache.New(cacheDir)
	}

	cached := httpcache.NewTransport(cache)
	cached.Transport = next
	cached.MarkCachedResponses = true

	return &CachingTransport{cached: cached, direct: next}
}

func (t *CachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if isCacheable(req) {
		return t.cached.RoundTrip(req)
	}
	return t.direct.RoundTrip(req)
}

// FromCache reports whether resp was served from the cache.
func FromCache(resp *http.Response) bool {
	return resp.Header.Get(httpcache.XFromCache) == "1"
}

func isCacheable(req *http.Request) bool {
	if req.Method != http.MethodGet {
		return false
	}
	for _, p := range CacheablePaths {
		if strings.HasSuffix(req.URL.Path, p) {
			return true
		}
	}
	return false
}
