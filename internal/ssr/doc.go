/*
Package ssr implements the render pipeline: resolve the template and
script, optionally bundle the script, build a realm, evaluate the script,
wait for the application to report readiness, then serialize and dispose.

Readiness is a race between the configured ready event, the timeout and,
when WaitForIdle is set, the realm running out of timers and fetches. The
first source wins and the others are revoked; finalization runs once. A
timeout is a successful render of whatever the document holds at that
moment.

Failures are RenderErrors routed through the ErrorHandler. Asynchronous
errors that escape a realm go to the process-wide Guard instead and never
fail the render.
*/
package ssr
