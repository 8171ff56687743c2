package ssrender_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ssrender"
)

const template = `<!DOCTYPE html><html><head></head><body><div id="app"></div></body></html>`

func TestRender(t *testing.T) {
	script := `
		document.getElementById('app').textContent = 'hello ' + location.pathname;
		window.dispatchEvent(new CustomEvent('app-loaded'));
	`
	html, err := ssrender.Render(context.Background(), template, script, "/about",
		ssrender.WithLogger(zap.NewNop()),
		ssrender.WithTimeout(time.Second),
	)
	require.NoError(t, err)
	assert.Contains(t, html, `<div id="app">hello /about</div>`)
	assert.Contains(t, html, `<script>window.__ssrRendered = true</script>`)
}

func TestRenderAfterEvalHook(t *testing.T) {
	html, err := ssrender.Render(context.Background(), template, `document.body.append(document.createElement('noscript'))`, "/",
		ssrender.WithLogger(zap.NewNop()),
		ssrender.WithEventName(""),
		ssrender.WithAfterEval(ssrender.Chain(ssrender.RemoveMarker(), ssrender.RemoveSelector("noscript"))),
	)
	require.NoError(t, err)
	assert.NotContains(t, html, "__ssrRendered")
	assert.NotContains(t, html, "noscript")
}

func TestRenderErrorKind(t *testing.T) {
	_, err := ssrender.Render(context.Background(), template, `throw new Error('boom')`, "/",
		ssrender.WithLogger(zap.NewNop()),
		ssrender.WithErrorHandler(nil),
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ssrender.ErrScriptExecution))

	var re *ssrender.RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "/", re.URL)
}

func TestDefaultOptions(t *testing.T) {
	o := ssrender.DefaultOptions()
	assert.Equal(t, ssrender.DefaultHost, o.Host)
	assert.Equal(t, ssrender.DefaultEventName, o.EventName)
	assert.Equal(t, ssrender.DefaultTimeout, o.Timeout)
}
