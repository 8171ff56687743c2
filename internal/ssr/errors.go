package ssr

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Error kinds. A RenderError matches its kind with errors.Is.
var (
	ErrResolution        = errors.New("input resolution failed")
	ErrBuild             = errors.New("bundle build failed")
	ErrRealmConstruction = errors.New("realm construction failed")
	ErrScriptExecution   = errors.New("script execution failed")
	ErrHook              = errors.New("hook failed")
	ErrRealmClosed       = errors.New("realm closed before finalization")
	ErrCanceled          = errors.New("render canceled")
)

// RenderError is a failed render step.
type RenderError struct {
	Kind error
	URL  string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v: %v", e.URL, e.Kind, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func (e *RenderError) Is(target error) bool {
	return target == e.Kind
}

// ErrorContext describes where a render failed.
type ErrorContext struct {
	Kind     error
	RenderID string
	Options  Options
	Logger   *zap.Logger
}

// ErrorHandler receives every pipeline failure. Returning nil swallows the
// error and the render yields an empty document; returning an error fails
// the render with it.
type ErrorHandler func(err error, url string, ec ErrorContext) error

// DefaultErrorHandler logs the url and returns err unchanged.
func DefaultErrorHandler(err error, url string, ec ErrorContext) error {
	logger := ec.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Error("Render failed",
		zap.String("url", url),
		zap.String("render_id", ec.RenderID),
		zap.Error(err),
	)
	return err
}

func newRenderError(kind error, url string, err error) *RenderError {
	return &RenderError{Kind: kind, URL: url, Err: err}
}
