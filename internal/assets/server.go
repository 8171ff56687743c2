package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ssrender/internal/infrastructure/config"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/monitoring"
)

const shutdownTimeout = 5 * time.Second

var mimeTypes = map[string]string{
	"js":   "text/javascript",
	"css":  "text/css",
	"json": "application/json",
	"png":  "image/png",
	"jpg":  "image/jpeg",
}

// ContentType maps a request path to the Content-Type the server sends.
// Unknown extensions are served as text/html.
func ContentType(p string) string {
	ext := p[strings.LastIndex(p, ".")+1:]
	if t, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return t
	}
	return "text/html"
}

// Server serves a build directory over HTTP.
type Server struct {
	handler http.Handler
	dir     string
	config  config.AssetsConfig
	logger  *logging.Logger
}

// NewServer creates an asset server for cfg.Dir. metrics may be nil.
func NewServer(cfg config.AssetsConfig, logger *logging.Logger, metrics *monitoring.Metrics) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("asset directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset directory %s is not a directory", cfg.Dir)
	}

	s := &Server{
		dir:    cfg.Dir,
		config: cfg,
		logger: logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLog(logger.Logger, metrics))
	if cfg.CORS {
		router.Use(CORS(DefaultCORSConfig()))
	}
	if cfg.RateLimit > 0 {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit),
			zap.Int("burst", cfg.Burst),
		)
		router.Use(RateLimit(cfg.RateLimit, cfg.Burst))
	}
	if cfg.Metrics && metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	router.NoRoute(s.serveFile)

	s.handler = router
	if cfg.Gzip {
		s.handler = gzhttp.GzipHandler(router)
	}
	return s, nil
}

// Handler returns the root handler, including compression when enabled.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) serveFile(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Status(http.StatusMethodNotAllowed)
		return
	}

	p := c.Request.URL.Path
	if p == "/" {
		p = "/index.html"
	}
	name := filepath.Join(s.dir, filepath.FromSlash(path.Clean("/"+p)))

	f, err := os.Open(name)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		c.Status(http.StatusNotFound)
		return
	}

	c.Header("Content-Type", ContentType(p))
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := ":" + s.config.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Serving assets",
			zap.String("addr", addr),
			zap.String("dir", s.dir),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down asset server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down asset server: %w", err)
	}
	return nil
}
