package ssr

import (
	"context"
	"testing"
	"time"

	"github.com/GriffinCanCode/ssrender/internal/realm"
	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()

	assert.Equal(t, "http://jsdom.ssr", o.Host)
	assert.Equal(t, "app-loaded", o.EventName)
	assert.Equal(t, 5*time.Second, o.Timeout)
	assert.True(t, o.Stamp)
	assert.False(t, o.Silent)
	assert.False(t, o.InlineDynamicImports)
	assert.False(t, o.Dev)
	assert.False(t, o.WaitForIdle)
	assert.Zero(t, o.Grace)
	assert.Zero(t, o.ScriptTimeout)
	assert.NotNil(t, o.ErrorHandler)
	assert.Equal(t, []string{"/**"}, o.LocalPatterns)
}

func TestMergeIsShallow(t *testing.T) {
	hook := func(context.Context, *realm.Realm) error { return nil }
	base := DefaultOptions()
	base.Meta = map[string]string{"a": "1", "b": "2"}

	merged := base.Merge(Options{
		Host:      "http://localhost:5000",
		Timeout:   time.Second,
		Silent:    true,
		Meta:      map[string]string{"c": "3"},
		AfterEval: hook,
	})

	assert.Equal(t, "http://localhost:5000", merged.Host)
	assert.Equal(t, "app-loaded", merged.EventName)
	assert.Equal(t, time.Second, merged.Timeout)
	assert.True(t, merged.Silent)
	assert.True(t, merged.Stamp)
	assert.Equal(t, map[string]string{"c": "3"}, merged.Meta)
	assert.NotNil(t, merged.AfterEval)
	assert.Equal(t, "http://jsdom.ssr", base.Host)
}

func TestFunctionalOptions(t *testing.T) {
	o := DefaultOptions()
	for _, opt := range []Option{
		WithEventName(""),
		WithStamp(false),
		WithTimeout(50 * time.Millisecond),
		WithGrace(10 * time.Millisecond),
		WithDev(true),
		WithLocalFiles("dist", "/assets/**"),
		WithErrorHandler(nil),
		WithScriptTimeout(time.Second),
		WithFetchLimits(2*time.Second, 10),
	} {
		opt(&o)
	}

	assert.Empty(t, o.EventName)
	assert.False(t, o.Stamp)
	assert.Equal(t, 50*time.Millisecond, o.Timeout)
	assert.Equal(t, 10*time.Millisecond, o.Grace)
	assert.True(t, o.Dev)
	assert.Equal(t, "dist", o.LocalRoot)
	assert.Equal(t, []string{"/assets/**"}, o.LocalPatterns)
	assert.Nil(t, o.ErrorHandler)
	assert.Equal(t, time.Second, o.ScriptTimeout)
	assert.Equal(t, 2*time.Second, o.FetchTimeout)
	assert.Equal(t, 10.0, o.FetchRateLimit)
}
