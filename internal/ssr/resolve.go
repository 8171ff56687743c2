package ssr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
)

// maxPathLen bounds what is ever considered a filesystem path.
const maxPathLen = 4096

// looksLikePath reports whether s could plausibly be a path. Anything else,
// markup and multi-line scripts included, is literal content even if a file
// with that name exists.
func looksLikePath(s string) bool {
	if s == "" || len(s) > maxPathLen {
		return false
	}
	s = s[len(filepath.VolumeName(s)):]
	return !strings.ContainsAny(s, "<>:\"|?*\r\n")
}

// resolveSource returns the content of the file named by input when such a
// regular file exists, and input itself otherwise. warn enables the
// looks-like-a-missing-path warning.
func resolveSource(input, contentType string, warn bool, logger *zap.Logger) (string, error) {
	if !looksLikePath(input) {
		return input, nil
	}
	info, err := os.Stat(input)
	if err != nil || !info.Mode().IsRegular() {
		if warn {
			logger.Warn(fmt.Sprintf("The script %q looks like a filepath, but the file doesn't exist", input))
		}
		return input, nil
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", input, err)
	}
	return decodeSource(data, contentType), nil
}

// decodeSource converts non-UTF-8 file content using the encoding declared
// by a BOM or, for HTML, a <meta charset>. Scripts without a BOM get a
// statistical guess.
func decodeSource(data []byte, contentType string) string {
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\uFEFF")
	}
	enc, _, certain := charset.DetermineEncoding(data, contentType)
	if !certain && contentType != "text/html" {
		if guess, err := chardet.NewTextDetector().DetectBest(data); err == nil {
			if e, err := htmlindex.Get(guess.Charset); err == nil {
				enc = e
			}
		}
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}
