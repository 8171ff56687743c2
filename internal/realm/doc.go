/*
Package realm provides isolated, single-use browser-like environments for
server-side rendering.

# Overview

A Realm is one goja JavaScript runtime bound to one parsed HTML document and
one navigation URL. The runtime is driven by a goja_nodejs event loop so the
rendered application gets working timers, promises and fetch. Every render
owns its own Realm; nothing is shared between realms.

# Architecture

 1. Event loop: owns the goja VM; all JavaScript and DOM access happens on it
 2. DOM binding: golang.org/x/net/html nodes exposed as live JS objects
 3. Shims: window, location, history, navigator, console, timers, text
    codecs, fetch, and no-op viewport APIs (alert, scrollTo, animation frames)
 4. Lifecycle: Running -> Frozen -> Closed

# Lifecycle

While running, Go code reaches the VM through Do, which schedules work on the
loop and waits for it. Freeze stops the loop, after which Do runs directly on
the caller's goroutine; finalization hooks and serialization happen there.
Dispose terminates the loop, cancels in-flight fetches and makes every later
call return ErrClosed. Dispose is idempotent.

# Async tracking

Timers and fetches started by the application are counted. Idle returns a
channel that is closed once no tracked work remains, which callers may use
as a readiness signal after evaluating the script.

# Usage Example

	r, err := realm.New(template, realm.DefaultConfig("http://jsdom.ssr/"))
	if err != nil {
		return err
	}
	defer r.Dispose()

	if err := r.Eval(script); err != nil {
		return err
	}
	r.Freeze()
	html, err := r.Serialize()
*/
package realm
