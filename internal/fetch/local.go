package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/ssrender/internal/infrastructure/monitoring"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultLocalPatterns matches every same-origin path.
var DefaultLocalPatterns = []string{"/**"}

// Local serves same-origin fetches whose path matches one of Patterns from
// files under Root. Everything else is delegated to Next.
//
// Assets referenced by absolute path usually are not reachable over the
// network before deployment, so reading them from the build directory is
// the only way the application sees them during a render.
type Local struct {
	Root     string
	Origin   string
	Patterns []string
	Next     Fetcher
	Metrics  *monitoring.Metrics
}

// NewLocal creates a local fetcher. origin is the navigation origin,
// e.g. "http://jsdom.ssr".
func NewLocal(root, origin string, patterns []string, next Fetcher) (*Local, error) {
	if root == "" {
		return nil, errors.New("local fetch requires a root directory")
	}
	if len(patterns) == 0 {
		patterns = DefaultLocalPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid local pattern %q", p)
		}
	}
	o, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	return &Local{
		Root:     root,
		Origin:   o.Scheme + "://" + o.Host,
		Patterns: patterns,
		Next:     next,
	}, nil
}

// Fetch implements Fetcher.
func (l *Local) Fetch(ctx context.Context, req *Request) (*Response, error) {
	if p, ok := l.match(req); ok {
		return l.read(p, req.URL)
	}
	if l.Next == nil {
		return nil, fmt.Errorf("no fetcher for %s", req.URL)
	}
	return l.Next.Fetch(ctx, req)
}

func (l *Local) match(req *Request) (string, bool) {
	if req.Method != "" && req.Method != http.MethodGet && req.Method != http.MethodHead {
		return "", false
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Scheme+"://"+u.Host != l.Origin {
		return "", false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	for _, pattern := range l.Patterns {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return p, true
		}
	}
	return "", false
}

func (l *Local) read(urlPath, rawURL string) (*Response, error) {
	name := filepath.Join(l.Root, filepath.FromSlash(path.Clean("/"+urlPath)))
	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || isDirErr(name) {
			l.Metrics.IncFetch("local", "404")
			return &Response{
				Status:     http.StatusNotFound,
				StatusText: http.StatusText(http.StatusNotFound),
				URL:        rawURL,
				Header:     http.Header{},
			}, nil
		}
		return nil, fmt.Errorf("local fetch %s: %w", urlPath, err)
	}
	l.Metrics.IncFetch("local", "200")

	header := http.Header{}
	header.Set("Content-Type", contentType(name, data))
	header.Set("Content-Length", strconv.Itoa(len(data)))
	return &Response{
		Status:     http.StatusOK,
		StatusText: http.StatusText(http.StatusOK),
		URL:        rawURL,
		Header:     header,
		Body:       data,
	}, nil
}

func isDirErr(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}

// contentType prefers well-known extensions and sniffs the rest.
func contentType(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".js", ".mjs":
		return "text/javascript"
	case ".css":
		return "text/css"
	}
	return mimetype.Detect(data).String()
}
