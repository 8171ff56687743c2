package bundle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/ssrender/internal/infrastructure/monitoring"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingBundler writes a marker artifact and counts invocations.
type countingBundler struct {
	calls atomic.Int32
	gate  chan struct{}
}

func (b *countingBundler) Bundle(ctx context.Context, entry, outfile string) error {
	n := b.calls.Add(1)
	if b.gate != nil {
		<-b.gate
	}
	return os.WriteFile(outfile, []byte("bundle #"+string(rune('0'+n))), 0o644)
}

func writeEntry(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInlineCachesAcrossCalls(t *testing.T) {
	entry := writeEntry(t, t.TempDir(), "main.js", "console.log(1)")
	b := &countingBundler{}
	metrics := monitoring.NewMetrics()
	inliner := NewInliner(b, NewDiskCache(), WithMetrics(metrics))
	ctx := context.Background()

	first, rebuilt, err := inliner.Inline(ctx, entry, false)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, "bundle #1", first)

	second, rebuilt, err := inliner.Inline(ctx, entry, false)
	require.NoError(t, err)
	assert.False(t, rebuilt)
	assert.Equal(t, first, second)

	assert.Equal(t, int32(1), b.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BundleBuilds.WithLabelValues("built")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BundleBuilds.WithLabelValues("cached")))
}

func TestInlineDevRebuildsEveryCall(t *testing.T) {
	entry := writeEntry(t, t.TempDir(), "main.js", "console.log(1)")
	b := &countingBundler{}
	inliner := NewInliner(b, NewDiskCache())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		script, rebuilt, err := inliner.Inline(ctx, entry, true)
		require.NoError(t, err)
		assert.True(t, rebuilt)
		assert.Equal(t, "bundle #"+string(rune('0'+i)), script)
	}
	assert.Equal(t, int32(3), b.calls.Load())
}

func TestInlineTrustsExistingArtifact(t *testing.T) {
	dir := t.TempDir()
	entry := writeEntry(t, dir, "main.js", "console.log(1)")
	writeEntry(t, dir, ArtifactName, "prebuilt")

	b := &countingBundler{}
	script, rebuilt, err := NewInliner(b, NewDiskCache()).Inline(context.Background(), entry, false)
	require.NoError(t, err)
	assert.False(t, rebuilt)
	assert.Equal(t, "prebuilt", script)
	assert.Zero(t, b.calls.Load())
}

func TestInlineBuildError(t *testing.T) {
	entry := writeEntry(t, t.TempDir(), "main.js", "")
	failing := BundlerFunc(func(ctx context.Context, entry, outfile string) error {
		return errors.New("syntax error")
	})

	_, _, err := NewInliner(failing, NewDiskCache()).Inline(context.Background(), entry, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestInlineCoalescesConcurrentBuilds(t *testing.T) {
	entry := writeEntry(t, t.TempDir(), "main.js", "console.log(1)")
	b := &countingBundler{gate: make(chan struct{})}
	inliner := NewInliner(b, NewDiskCache())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := inliner.Inline(context.Background(), entry, false)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(b.gate)
	wg.Wait()

	assert.Equal(t, int32(1), b.calls.Load())
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "src", "main.js")
	cache := NewDiskCache()

	assert.Equal(t, filepath.Join(dir, "src", ArtifactName), cache.Location(entry))

	_, ok := cache.Lookup(entry)
	assert.False(t, ok)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	writeEntry(t, filepath.Join(dir, "src"), ArtifactName, "x")
	loc, ok := cache.Lookup(entry)
	assert.True(t, ok)
	assert.Equal(t, cache.Location(entry), loc)

	require.NoError(t, cache.Invalidate(entry))
	_, ok = cache.Lookup(entry)
	assert.False(t, ok)
	assert.NoError(t, cache.Invalidate(entry))
}

func TestEsbuildInlinesDynamicImports(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "lazy.js", `export const message = "from-the-lazy-chunk";`)
	entry := writeEntry(t, dir, "main.js", `
import("./lazy.js").then(function (m) {
  document.body.textContent = m.message;
});
`)

	script, rebuilt, err := NewInliner(NewEsbuild(), NewDiskCache()).Inline(context.Background(), entry, false)
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Contains(t, script, "from-the-lazy-chunk")
	assert.NotContains(t, script, `import("./lazy.js")`)

	_, err = os.Stat(filepath.Join(dir, ArtifactName))
	assert.NoError(t, err)
}

func TestEsbuildReportsErrors(t *testing.T) {
	dir := t.TempDir()
	entry := writeEntry(t, dir, "main.js", `import "./does-not-exist.js";`)

	err := NewEsbuild().Bundle(context.Background(), entry, filepath.Join(dir, ArtifactName))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "esbuild")
}
