/*
Package monitoring provides Prometheus metrics for the render pipeline.

# Overview

Metrics live in a private registry per collector instead of the global
default registry, so library callers and tests can create as many pipelines
as they like without duplicate registration panics.

# Metrics

  - ssr_renders_total{outcome}: ok, timeout, error
  - ssr_render_duration_seconds{source}: event, timeout, idle, immediate
  - ssr_renders_in_flight
  - ssr_bundle_builds_total{result}: built, cached, failed
  - ssr_async_rejections_total
  - ssr_fetches_total{kind,status}
  - ssr_asset_requests_total{status}
  - ssr_realm_console_total{level}

All recording methods are nil-safe: a nil *Metrics disables collection.

# Usage

	metrics := monitoring.NewMetrics()
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
