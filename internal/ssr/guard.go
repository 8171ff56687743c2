package ssr

import (
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/ssrender/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

// Guard is the process-wide sink for asynchronous errors that escape a
// realm: unhandled promise rejections and exceptions thrown by timers or
// listeners. They are logged with the url that produced them and never fail
// the render in flight.
type Guard struct {
	logger   *zap.Logger
	reported atomic.Int64
}

// Origin identifies the render an async error came from. Logger and Metrics
// are the render's own; a nil Logger falls back to the guard's.
type Origin struct {
	URL      string
	RenderID string
	Logger   *zap.Logger
	Metrics  *monitoring.Metrics
}

var (
	guardOnce     sync.Once
	processGuard  *Guard
	guardInstalls atomic.Int32
)

// InstallGuard installs the process guard on first use and returns it.
func InstallGuard() *Guard {
	guardOnce.Do(func() {
		processGuard = &Guard{logger: defaultLogger()}
		guardInstalls.Add(1)
	})
	return processGuard
}

// Report logs an unhandled rejection from the render described by o.
func (g *Guard) Report(o Origin, reason string) {
	g.reported.Add(1)
	o.Metrics.IncRejection()
	g.loggerFor(o).Error("Unhandled promise rejection",
		zap.String("url", o.URL),
		zap.String("reason", reason),
	)
}

// ReportError logs an uncaught error from a timer or listener.
func (g *Guard) ReportError(o Origin, err error) {
	g.reported.Add(1)
	g.loggerFor(o).Error("Uncaught error in realm",
		zap.String("url", o.URL),
		zap.Error(err),
	)
}

// Reported returns how many async errors the guard has seen.
func (g *Guard) Reported() int64 {
	return g.reported.Load()
}

func (g *Guard) loggerFor(o Origin) *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return g.logger.With(zap.String("render_id", o.RenderID))
}
