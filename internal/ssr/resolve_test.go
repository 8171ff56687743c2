package ssr

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResolveLiteral(t *testing.T) {
	logger, logs := observed()

	tests := []struct {
		name  string
		input string
		warn  bool
	}{
		{"markup", "<html><body></body></html>", false},
		{"multi-line script", "const a = 1;\nconsole.log(a)", false},
		{"too long", strings.Repeat("a", maxPathLen+1), false},
		{"path-like but missing", "dist/missing-bundle.js", true},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := logs.Len()
			out, err := resolveSource(tt.input, "text/javascript", true, logger)
			require.NoError(t, err)
			assert.Equal(t, tt.input, out)
			if tt.warn {
				assert.Equal(t, before+1, logs.Len())
			} else {
				assert.Equal(t, before, logs.Len())
			}
		})
	}
}

func TestResolveWarningOnlyForScripts(t *testing.T) {
	logger, logs := observed()

	out, err := resolveSource("templates/missing.html", "text/html", false, logger)
	require.NoError(t, err)
	assert.Equal(t, "templates/missing.html", out)
	assert.Zero(t, logs.Len())
}

func TestResolveFile(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "index.html")
	content := "<html>\n<body>verbatim</body>\n</html>\n"
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))

	out, err := resolveSource(name, "text/html", true, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, content, out)
}

func TestResolveIllegalPathCharactersAreLiteral(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "app<v2>.js")
	require.NoError(t, os.WriteFile(name, []byte("FILE CONTENT"), 0o644))

	logger, logs := observed()
	out, err := resolveSource(name, "text/javascript", true, logger)
	require.NoError(t, err)
	assert.Equal(t, name, out)
	assert.Zero(t, logs.Len())
}

func TestResolveDirectoryIsLiteral(t *testing.T) {
	dir := t.TempDir()

	out, err := resolveSource(dir, "text/html", false, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, dir, out)
}

func TestResolveDecodesLegacyEncodings(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "latin1.html")
	require.NoError(t, os.WriteFile(name, []byte("<meta charset=\"iso-8859-1\"><p>caf\xe9</p>"), 0o644))

	out, err := resolveSource(name, "text/html", false, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, `<meta charset="iso-8859-1"><p>café</p>`, out)
}

func TestResolveGuessesUndeclaredEncoding(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "app.js")
	script := "// Le caf\xe9 est pr\xeat, la cr\xe8me br\xfbl\xe9e aussi. " +
		"Les \xe9l\xe8ves arrivent \xe0 l'\xe9cole tr\xe8s t\xf4t le matin.\n" +
		"document.title = 'caf\xe9';\n"
	require.NoError(t, os.WriteFile(name, []byte(script), 0o644))

	out, err := resolveSource(name, "text/javascript", true, zap.NewNop())
	require.NoError(t, err)
	assert.Contains(t, out, "document.title = 'café';")
}

func TestResolveStripsBOM(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "bom.html")
	require.NoError(t, os.WriteFile(name, []byte("\xef\xbb\xbf<p>x</p>"), 0o644))

	out, err := resolveSource(name, "text/html", false, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", out)
}

func TestLooksLikePath(t *testing.T) {
	assert.True(t, looksLikePath("./app/main.js"))
	assert.False(t, looksLikePath("<div>"))
	assert.False(t, looksLikePath("a\nb"))
	assert.False(t, looksLikePath("what?"))
	assert.False(t, looksLikePath(""))
}
