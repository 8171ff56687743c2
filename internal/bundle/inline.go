package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/GriffinCanCode/ssrender/internal/infrastructure/monitoring"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Inliner produces bundled scripts through a Cache and a Bundler.
type Inliner struct {
	bundler Bundler
	cache   Cache
	group   singleflight.Group
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// InlinerOption configures an Inliner.
type InlinerOption func(*Inliner)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) InlinerOption {
	return func(i *Inliner) { i.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *monitoring.Metrics) InlinerOption {
	return func(i *Inliner) { i.metrics = m }
}

// NewInliner creates an Inliner.
func NewInliner(b Bundler, c Cache, opts ...InlinerOption) *Inliner {
	i := &Inliner{
		bundler: b,
		cache:   c,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Inline returns the bundled script for entry. In dev mode the artifact is
// rebuilt unconditionally; otherwise an existing artifact is reused. rebuilt
// reports whether this call produced a fresh build.
func (i *Inliner) Inline(ctx context.Context, entry string, dev bool) (script string, rebuilt bool, err error) {
	key, err := filepath.Abs(entry)
	if err != nil {
		return "", false, fmt.Errorf("resolve entry %s: %w", entry, err)
	}

	loc, ok := i.cache.Lookup(key)
	if dev || !ok {
		built, err, _ := i.group.Do(key, func() (interface{}, error) {
			return i.build(ctx, key)
		})
		if err != nil {
			i.metrics.IncBundle("failed")
			return "", false, err
		}
		loc = built.(string)
		rebuilt = true
	} else {
		i.metrics.IncBundle("cached")
	}

	data, err := os.ReadFile(loc)
	if err != nil {
		return "", rebuilt, fmt.Errorf("read bundle %s: %w", loc, err)
	}
	return string(data), rebuilt, nil
}

func (i *Inliner) build(ctx context.Context, entry string) (string, error) {
	loc := i.cache.Location(entry)
	i.logger.Debug("building bundle", zap.String("entry", entry), zap.String("artifact", loc))

	if err := i.bundler.Bundle(ctx, entry, loc); err != nil {
		return "", fmt.Errorf("bundle %s: %w", entry, err)
	}
	i.metrics.IncBundle("built")
	return loc, nil
}
