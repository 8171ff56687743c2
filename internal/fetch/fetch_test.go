package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/ssrender/internal/infrastructure/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"ssr"}`))
		case "/echo":
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("X-Method", r.Method)
			w.Header().Set("X-Custom", r.Header.Get("X-Custom"))
			_, _ = w.Write(body)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient()
	ctx := context.Background()

	t.Run("get", func(t *testing.T) {
		resp, err := client.Fetch(ctx, &Request{URL: srv.URL + "/json"})
		require.NoError(t, err)
		assert.True(t, resp.OK())
		assert.Equal(t, "OK", resp.StatusText)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"name":"ssr"}`, string(resp.Body))
	})

	t.Run("post with body and headers", func(t *testing.T) {
		resp, err := client.Fetch(ctx, &Request{
			Method: "post",
			URL:    srv.URL + "/echo",
			Header: http.Header{"X-Custom": []string{"yes"}},
			Body:   []byte("payload"),
		})
		require.NoError(t, err)
		assert.Equal(t, "POST", resp.Header.Get("X-Method"))
		assert.Equal(t, "yes", resp.Header.Get("X-Custom"))
		assert.Equal(t, "payload", string(resp.Body))
	})

	t.Run("not found is a response, not an error", func(t *testing.T) {
		resp, err := client.Fetch(ctx, &Request{URL: srv.URL + "/missing"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.Status)
		assert.False(t, resp.OK())
	})
}

func TestClientBreakerPerHost(t *testing.T) {
	var hits atomic.Int32
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer up.Close()

	client := NewClient()
	client.Breakers = resilience.NewGroup(resilience.Settings{Threshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp, err := client.Fetch(ctx, &Request{URL: down.URL})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.Status)
	}
	before := hits.Load()

	_, err := client.Fetch(ctx, &Request{URL: down.URL + "/other"})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, before, hits.Load())

	resp, err := client.Fetch(ctx, &Request{URL: up.URL})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
}

func TestClientCancellationDoesNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := NewClient()
	client.Breakers = resilience.NewGroup(resilience.Settings{Threshold: 1, Cooldown: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Fetch(ctx, &Request{URL: srv.URL})
	require.Error(t, err)

	resp, err := client.Fetch(context.Background(), &Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
}

func TestClientSetTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient()
	c.Resty.SetRetryCount(0)
	c.SetTimeout(50 * time.Millisecond)

	_, err := c.Fetch(context.Background(), &Request{URL: srv.URL})
	assert.Error(t, err)
}

func TestClientSetRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := NewClient()
	c.SetRateLimit(5)
	assert.Equal(t, rate.Limit(5), c.Limiter.Limit())
	assert.Equal(t, 5, c.Limiter.Burst())

	c.SetRateLimit(0.5)
	assert.Equal(t, 1, c.Limiter.Burst())
	_, err := c.Fetch(context.Background(), &Request{URL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = c.Fetch(ctx, &Request{URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")

	c.SetRateLimit(0)
	assert.Equal(t, rate.Inf, c.Limiter.Limit())
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "OK", statusText(200, "200 OK"))
	assert.Equal(t, "Not Found", statusText(404, ""))
	assert.Equal(t, "I'm a teapot", statusText(418, "418 I'm a teapot"))
}

func TestLocalFetch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "post.json"), []byte(`{"id":1}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.js"), []byte(`console.log(1)`), 0o644))

	var delegated []string
	next := FetcherFunc(func(ctx context.Context, req *Request) (*Response, error) {
		delegated = append(delegated, req.URL)
		return &Response{Status: 200, URL: req.URL}, nil
	})

	local, err := NewLocal(root, "http://jsdom.ssr/some/page", []string{"/data/**", "/*.js"}, next)
	require.NoError(t, err)
	assert.Equal(t, "http://jsdom.ssr", local.Origin)

	ctx := context.Background()

	resp, err := local.Fetch(ctx, &Request{URL: "http://jsdom.ssr/data/post.json"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, `{"id":1}`, string(resp.Body))

	resp, err = local.Fetch(ctx, &Request{URL: "http://jsdom.ssr/app.js"})
	require.NoError(t, err)
	assert.Equal(t, "text/javascript", resp.Header.Get("Content-Type"))

	resp, err = local.Fetch(ctx, &Request{URL: "http://jsdom.ssr/data/missing.json"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp, err = local.Fetch(ctx, &Request{URL: "http://jsdom.ssr/data"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	// other origin, unmatched path and non-GET all fall through
	_, err = local.Fetch(ctx, &Request{URL: "https://api.example.com/data/post.json"})
	require.NoError(t, err)
	_, err = local.Fetch(ctx, &Request{URL: "http://jsdom.ssr/api/items"})
	require.NoError(t, err)
	_, err = local.Fetch(ctx, &Request{Method: http.MethodPost, URL: "http://jsdom.ssr/data/post.json"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://api.example.com/data/post.json",
		"http://jsdom.ssr/api/items",
		"http://jsdom.ssr/data/post.json",
	}, delegated)
}

func TestLocalTraversalStaysInRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "public")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("nope"), 0o644))

	local, err := NewLocal(root, "http://jsdom.ssr", nil, nil)
	require.NoError(t, err)

	resp, err := local.Fetch(context.Background(), &Request{URL: "http://jsdom.ssr/../secret.txt"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestNewLocalValidation(t *testing.T) {
	_, err := NewLocal("", "http://jsdom.ssr", nil, nil)
	assert.Error(t, err)

	_, err = NewLocal(t.TempDir(), "http://jsdom.ssr", []string{"/[a"}, nil)
	assert.Error(t, err)

	local, err := NewLocal(t.TempDir(), "http://jsdom.ssr", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultLocalPatterns, local.Patterns)

	_, err = local.Fetch(context.Background(), &Request{URL: "https://elsewhere.test/"})
	assert.Error(t, err)
}
