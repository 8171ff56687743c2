package bundle

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ArtifactName is the sibling file a DiskCache writes next to the entry.
const ArtifactName = "__ssr-bundle.js"

// Cache maps a resolved entry path to the location of its build artifact.
type Cache interface {
	// Location returns where the artifact for entry lives (or will live).
	Location(entry string) string
	// Lookup returns the artifact location and whether a usable artifact exists.
	Lookup(entry string) (string, bool)
}

// DiskCache stores artifacts beside their entry point.
type DiskCache struct {
	name string
}

// NewDiskCache creates a cache using ArtifactName.
func NewDiskCache() *DiskCache {
	return &DiskCache{name: ArtifactName}
}

// Location implements Cache.
func (c *DiskCache) Location(entry string) string {
	return filepath.Join(filepath.Dir(entry), c.name)
}

// Lookup implements Cache.
func (c *DiskCache) Lookup(entry string) (string, bool) {
	loc := c.Location(entry)
	info, err := os.Stat(loc)
	if err != nil {
		return loc, false
	}
	return loc, info.Mode().IsRegular()
}

// Invalidate removes the artifact for entry, if any.
func (c *DiskCache) Invalidate(entry string) error {
	err := os.Remove(c.Location(entry))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
