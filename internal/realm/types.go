package realm

import (
	"errors"
	"time"

	"github.com/GriffinCanCode/ssrender/internal/fetch"
	"github.com/GriffinCanCode/ssrender/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

var (
	// ErrClosed is returned by every operation on a disposed realm.
	ErrClosed = errors.New("realm is closed")
	// ErrScriptTimeout interrupts a synchronous script that runs too long.
	ErrScriptTimeout = errors.New("script execution timeout exceeded")

	errFrozen = errors.New("realm frozen for finalization")
)

// Config defines realm configuration
type Config struct {
	URL           string              // Navigation URL (host + path)
	Fetcher       fetch.Fetcher       // Backs window.fetch; nil rejects every fetch
	Meta          map[string]string   // Attributes of a <meta> appended to <head>
	ScriptTimeout time.Duration       // Interrupt synchronous evaluation after this long
	Logger        *zap.Logger         // Console output and uncaught errors
	Metrics       *monitoring.Metrics // Optional
	OnRejection   func(reason string) // Unhandled promise rejections
	OnError       func(err error)     // Uncaught errors in timers and listeners
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, info, debug, warn, error
	Message string    // Log message
	Time    time.Time // Timestamp
}

// MarkerScript is the body of the script element injected by Realm.Stamp.
const MarkerScript = "window.__ssrRendered = true"

// DefaultConfig returns a realm configuration for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:           url,
		ScriptTimeout: 5 * time.Second,
	}
}
