package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_HealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := newFakeServer(t, http.StatusOK, `{"success":true,"message":"ok","date":"2024-01-01T00:00:00Z"}`)
		c := New(Config{BaseURL: srv.URL}, nil)

		status, err := c.HealthCheck(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Success)
		assert.Equal(t, "/health-check", srv.last(t).Path)
	})

	t.Run("reported unhealthy", func(t *testing.T) {
		srv := newFakeServer(t, http.StatusOK, `{"success":false,"message":"db down"}`)
		c := New(Config{BaseURL: srv.URL}, nil)

		_, err := c.HealthCheck(context.Background())
		require.ErrorIs(t, err, ErrServer)
	})
}

func TestClient_WaitHealthy(t *testing.T) {
	t.Run("retries until healthy", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
		}))
		t.Cleanup(srv.Close)

		c := New(Config{BaseURL: srv.URL}, nil)

		status, err := c.WaitHealthy(context.Background(), 30*time.Second)
		require.NoError(t, err)
		assert.True(t, status.Success)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("client errors stop immediately", func(t *testing.T) {
		srv := newFakeServer(t, http.StatusNotFound, `{"success":false,"message":"no such route"}`)
		c := New(Config{BaseURL: srv.URL}, nil)

		_, err := c.WaitHealthy(context.Background(), 30*time.Second)
		require.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 1, srv.count())
	})

	t.Run("gives up when the context ends", func(t *testing.T) {
		srv := newFakeServer(t, http.StatusServiceUnavailable, ``)
		c := New(Config{BaseURL: srv.URL}, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
		defer cancel()

		_, err := c.WaitHealthy(ctx, time.Minute)
		require.Error(t, err)
	})
}

func TestClient_CachingTransport(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Cache-Control", "max-age=60")
		if r.Method != http.MethodGet {
			_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":{"id":"g1","name":"Poetry"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":[{"id":"g1","name":"Poetry"}]}`))
	}))
	t.Cleanup(srv.Close)

	t.Run("disabled", func(t *testing.T) {
		hits.Store(0)
		c := New(Config{BaseURL: srv.URL}, nil)

		for range 2 {
			_, err := c.ListGenres(context.Background(), GenreQuery{})
			require.NoError(t, err)
		}
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("enabled on disk", func(t *testing.T) {
		hits.Store(0)
		c := New(Config{BaseURL: srv.URL, Cache: true, CacheDir: t.TempDir()}, nil)

		for range 2 {
			page, err := c.ListGenres(context.Background(), GenreQuery{})
			require.NoError(t, err)
			assert.Len(t, page.Items, 1)
		}
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("mutations are never cached", func(t *testing.T) {
		hits.Store(0)
		c := New(Config{BaseURL: srv.URL, Cache: true}, nil)

		for range 2 {
			_, err := c.CreateGenre(context.Background(), "Poetry")
			require.NoError(t, err)
		}
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("authenticated requests bypass the cache", func(t *testing.T) {
		hits.Store(0)
		tokens := &mutableToken{}
		tokens.set("token-a")
		c := New(Config{BaseURL: srv.URL, Cache: true, CacheDir: t.TempDir()}, tokens)

		_, err := c.ListGenres(context.Background(), GenreQuery{})
		require.NoError(t, err)

		tokens.set("token-b")
		_, err = c.ListGenres(context.Background(), GenreQuery{})
		require.NoError(t, err)

		assert.Equal(t, int32(2), hits.Load())
	})
}

func TestClient_CachingTransportKeepsIdentitiesApart(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer token-a" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"invalid token"}`))
			return
		}
		w.Header().Set("Cache-Control", "max-age=600")
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":{"id":"1","email":"a@example.com"}}`))
	}))
	t.Cleanup(srv.Close)

	tokens := &mutableToken{}
	tokens.set("token-a")
	c := New(Config{BaseURL: srv.URL, Cache: true, CacheDir: t.TempDir()}, tokens)

	var unauthorized atomic.Int32
	c.OnUnauthorized(func(context.Context) { unauthorized.Add(1) })

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)

	tokens.set("token-b")
	_, err = c.Me(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int32(1), unauthorized.Load())
}
