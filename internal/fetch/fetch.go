// Package fetch implements the network capability behind the realm's fetch
// global: a resty-based HTTP client for real resources and a local fetcher
// that serves same-origin paths straight from disk.
package fetch

import (
	"context"
	"net/http"
)

// Request is a fetch issued by a rendered application, with URL already
// resolved against the realm's navigation URL.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is what the application sees as a fetch Response.
type Response struct {
	Status     int
	StatusText string
	URL        string
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Fetcher performs fetches on behalf of a realm.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req *Request) (*Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
