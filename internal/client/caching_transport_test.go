package client

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingTransport(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Cache-Control", "max-age=300")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	t.Run("serves cacheable paths from cache", func(t *testing.T) {
		hits.Store(0)
		httpClient := &http.Client{Transport: NewCachingTransport("", nil)}

		for i := 0; i < 3; i++ {
			resp, err := httpClient.Get(srv.URL + "/api/polls/categories/")
			require.NoError(t, err)
			_, _ = io.ReadAll(resp.Body)
			resp.Body.Close()
			if i > 0 {
				assert.True(t, FromCache(resp))
			}
		}
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("never caches per-user paths", func(t *testing.T) {
		hits.Store(0)
		httpClient := &http.Client{Transport: NewCachingTransport("", nil)}

		for i := 0; i < 3; i++ {
			resp, err := httpClient.Get(srv.URL + "/api/users/me/")
			require.NoError(t, err)
			_, _ = io.ReadAll(resp.Body)
			resp.Body.Close()
			assert.False(t, FromCache(resp))
		}
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("disk cache", func(t *testing.T) {
		hits.Store(0)
		httpClient := &http.Client{Transport: NewCachingTransport(t.TempDir(), nil)}

		for i := 0; i < 2; i++ {
			resp, err := httpClient.Get(srv.URL + "/api/polls/categories/")
			require.NoError(t, err)
			_, _ = io.ReadAll(resp.Body)
			resp.Body.Close()
		}
		assert.Equal(t, int32(1), hits.Load())
	})
}

func TestNewHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/set" {
			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "s1", Path: "/"})
			return
		}
		c, err := r.Cookie("sessionid")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, c.Value)
	}))
	defer srv.Close()

	httpClient, err := NewHTTPClient(DefaultConfig())
	require.NoError(t, err)

	resp, err := httpClient.Get(srv.URL + "/set")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = httpClient.Get(srv.URL + "/check")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "s1", string(body))
}
