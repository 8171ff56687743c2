package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/ssrender/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// errUpstream marks a 5xx response so the host's breaker counts it.
var errUpstream = errors.New("upstream error")

// Client wraps resty with rate limiting, retries and a circuit breaker per host
type Client struct {
	Resty    *resty.Client
	Limiter  *rate.Limiter
	Breakers *resilience.Group
	Metrics  *monitoring.Metrics
	Mu       sync.RWMutex
}

// NewClient creates the network client used by realms. Retries are kept
// short since a render is itself bounded by its readiness timeout.
func NewClient() *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = time.Second
	retryClient.Logger = nil

	restyClient := resty.New()
	restyClient.
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(100*time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("User-Agent", UserAgent)

	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	return &Client{
		Resty:    restyClient,
		Limiter:  rate.NewLimiter(rate.Inf, 0),
		Breakers: resilience.NewGroup(resilience.DefaultSettings()),
	}
}

// UserAgent is sent by the network client and reported by navigator.userAgent.
const UserAgent = "Mozilla/5.0 (ssrender) AppleWebKit/537.36 (KHTML, like Gecko)"

// SetTimeout configures request timeout
func (c *Client) SetTimeout(duration time.Duration) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Resty.SetTimeout(duration)
}

// SetRateLimit configures rate limiting (requests per second)
func (c *Client) SetRateLimit(rps float64) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if rps <= 0 {
		c.Limiter = rate.NewLimiter(rate.Inf, 0)
	} else {
		c.Limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// Fetch performs a real HTTP request.
func (c *Client) Fetch(ctx context.Context, req *Request) (*Response, error) {
	c.Mu.RLock()
	limiter := c.Limiter
	r := c.Resty.R().SetContext(ctx)
	c.Mu.RUnlock()

	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	if len(req.Header) > 0 {
		r.SetHeaderMultiValues(map[string][]string(req.Header))
	}
	if len(req.Body) > 0 {
		r.SetBody(bytes.NewReader(req.Body))
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var resp *resty.Response
	err := c.breaker(req.URL).Call(func() error {
		var err error
		resp, err = r.Execute(method, req.URL)
		if err == nil && resp.StatusCode() >= http.StatusInternalServerError {
			return errUpstream
		}
		return err
	}, countsAgainstHost)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.Metrics.IncFetch("network", "circuit_open")
		return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	if err != nil && !errors.Is(err, errUpstream) {
		c.Metrics.IncFetch("network", "error")
		return nil, fmt.Errorf("fetch %s failed: %w", req.URL, err)
	}
	c.Metrics.IncFetch("network", strconv.Itoa(resp.StatusCode()))

	return &Response{
		Status:     resp.StatusCode(),
		StatusText: statusText(resp.StatusCode(), resp.Status()),
		URL:        req.URL,
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// countsAgainstHost ignores cancellation, which happens whenever a render
// finishes with fetches still in flight.
func countsAgainstHost(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

func (c *Client) breaker(rawURL string) *resilience.Breaker {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return c.Breakers.Get(host)
}

// statusText strips the numeric code from a "200 OK" style status line.
func statusText(code int, status string) string {
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		return http.StatusText(code)
	}
	return text
}
