package client

import (
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// NewCachingTransport wraps next with an HTTP cache honouring the server's
// Cache-Control headers. Only GET responses marked cacheable are stored, so
// book and genre listings can be served locally while mutations always reach
// the API. An empty cacheDir keeps the cache in memory.
//
// Cache entries are keyed by URL alone, so requests carrying an Authorization
// header bypass the cache entirely and always reach the API.
func NewCachingTransport(cacheDir string, next http.RoundTripper) http.RoundTripper {
	var cache httpcache.Cache
	if cacheDir == "" {
		cache = httpcache.NewMemoryCache()
	} else {
		// Use disk-based cache for persistence across invocations
		cache = diskcache.New(cacheDir)
	}

	transport := httpcache.NewTransport(cache)
	transport.Transport = next

	return &anonymousCache{cached: transport, next: next}
}

type anonymousCache struct {
	cached http.RoundTripper
	next   http.RoundTripper
}

func (t *anonymousCache) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return t.next.RoundTrip(req)
	}
	return t.cached.RoundTrip(req)
}
