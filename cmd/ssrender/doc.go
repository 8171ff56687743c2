// Package main is the ssrender command line tool.
//
// Commands:
//   - render: render a template and script for one URL and print the HTML
//   - inline: bundle a script so dynamic imports are resolved ahead of time
//   - serve: serve a build directory over HTTP for manual testing
//
// Configuration:
//   - Defaults
//   - Optional YAML or TOML file (--config)
//   - Environment variables (SSR_*, LOG_*)
//   - CLI flags (override everything, only when set)
//
// Usage:
//
//	ssrender render dist/index.html dist/build/bundle.js /about > about.html
//	ssrender inline dist/build/main.js --dev
//	ssrender serve dist --port 9091
//
// Signals:
//   - SIGINT, SIGTERM: cancel the render or shut the server down gracefully
package main
