/*
Package bundle turns an application entry script into one self-contained
script with every dynamic import inlined, caching the result on disk.

# Overview

Realms cannot fetch modules on demand, so applications that rely on
import() must be flattened first. Three pieces cooperate:

  - Bundler: the external build capability (esbuild by default)
  - Cache: a key-value mapping from resolved entry path to artifact location
  - Inliner: consults the cache, builds when needed, reads the artifact

# Cache policy

An existing artifact is trusted and reused unless dev mode is requested, in
which case it is rebuilt on every call. Entries are never evicted. Concurrent
builds for the same entry are coalesced into a single build.

# Usage

	inliner := bundle.NewInliner(bundle.NewEsbuild(), bundle.NewDiskCache())
	script, rebuilt, err := inliner.Inline(ctx, "dist/main.js", false)
*/
package bundle
