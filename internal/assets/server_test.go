package assets

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ssrender/internal/infrastructure/config"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/monitoring"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func buildDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"index.html":       "<html><body>home</body></html>",
		"app.js":           "console.log('app')",
		"style.css":        "body{}",
		"data.json":        `{"ok":true}`,
		"about":            "<p>about</p>",
		"nested/page.html": "<p>nested</p>",
	}
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

func newServer(t *testing.T, cfg config.AssetsConfig, metrics *monitoring.Metrics) *Server {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = buildDir(t)
	}
	s, err := NewServer(cfg, logging.NewNop(), metrics)
	require.NoError(t, err)
	return s
}

func get(s *Server, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestContentType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/app.js", "text/javascript"},
		{"/style.css", "text/css"},
		{"/data.json", "application/json"},
		{"/logo.png", "image/png"},
		{"/photo.jpg", "image/jpeg"},
		{"/PHOTO.JPG", "image/jpeg"},
		{"/index.html", "text/html"},
		{"/about", "text/html"},
		{"/font.woff2", "text/html"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentType(tt.path))
		})
	}
}

func TestServeFiles(t *testing.T) {
	s := newServer(t, config.AssetsConfig{}, nil)

	tests := []struct {
		name        string
		target      string
		status      int
		body        string
		contentType string
	}{
		{"root maps to index", "/", http.StatusOK, "home", "text/html"},
		{"script", "/app.js", http.StatusOK, "console.log('app')", "text/javascript"},
		{"stylesheet", "/style.css", http.StatusOK, "body{}", "text/css"},
		{"json", "/data.json", http.StatusOK, `{"ok":true}`, "application/json"},
		{"no extension", "/about", http.StatusOK, "<p>about</p>", "text/html"},
		{"nested", "/nested/page.html", http.StatusOK, "<p>nested</p>", "text/html"},
		{"missing", "/missing.js", http.StatusNotFound, "", ""},
		{"directory", "/nested", http.StatusNotFound, "", ""},
		{"traversal stays in root", "/../../etc/passwd", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(s, tt.target, nil)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, w.Body.String())
				assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), tt.contentType))
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newServer(t, config.AssetsConfig{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/app.js", strings.NewReader("x"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestNewServerRejectsMissingDir(t *testing.T) {
	_, err := NewServer(config.AssetsConfig{Dir: filepath.Join(t.TempDir(), "nope")}, nil, nil)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewServer(config.AssetsConfig{Dir: file}, nil, nil)
	assert.Error(t, err)
}

func TestCORS(t *testing.T) {
	s := newServer(t, config.AssetsConfig{CORS: true}, nil)
	w := get(s, "/app.js", map[string]string{"Origin": "http://other.test"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	s = newServer(t, config.AssetsConfig{}, nil)
	w = get(s, "/app.js", map[string]string{"Origin": "http://other.test"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGzip(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("console.log('compress me');\n", 200)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.js"), []byte(big), 0o644))

	s := newServer(t, config.AssetsConfig{Dir: dir, Gzip: true}, nil)
	w := get(s, "/big.js", map[string]string{"Accept-Encoding": "gzip"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, big, string(data))
}

func TestRateLimit(t *testing.T) {
	s := newServer(t, config.AssetsConfig{RateLimit: 1, Burst: 2}, nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(s, "/app.js", nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	s := newServer(t, config.AssetsConfig{Metrics: true}, metrics)

	get(s, "/app.js", nil)
	get(s, "/missing", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AssetRequests.WithLabelValues("200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AssetRequests.WithLabelValues("404")))

	w := get(s, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ssr_asset_requests_total")
}
