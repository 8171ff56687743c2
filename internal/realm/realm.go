package realm

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

type state int

const (
	stateRunning state = iota
	stateFrozen
	stateClosed
)

// Realm is a single-use browser-like environment. See the package
// documentation for the lifecycle.
type Realm struct {
	cfg    Config
	logger *zap.Logger
	loop   *eventloop.EventLoop
	vm     *goja.Runtime
	doc    *html.Node

	mu        sync.Mutex
	state     state
	stopped   chan struct{}
	stopOnce  sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	consoleMu sync.Mutex
	console   []LogEntry

	// Owned by the loop goroutine while running, by the caller once frozen.
	url        *url.URL
	nodes      map[*html.Node]*nodeObject
	objects    map[*goja.Object]*nodeObject
	fragments  map[*html.Node]bool
	window     *eventTarget
	protos     map[string]*goja.Object
	location   *goja.Object
	history    *goja.Object
	timers     map[int64]*timer
	timerSeq   int64
	pending    int
	idle       []chan struct{}
	rejections []*goja.Promise
}

// New parses template into a document and builds a realm around it,
// navigated to cfg.URL.
func New(template string, cfg Config) (*Realm, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid navigation url %q: %w", cfg.URL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("invalid navigation url %q: not absolute", cfg.URL)
	}

	doc, err := html.Parse(strings.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Realm{
		cfg:       cfg,
		logger:    logger,
		loop:      eventloop.NewEventLoop(eventloop.EnableConsole(false)),
		doc:       doc,
		stopped:   make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		url:       u,
		nodes:     make(map[*html.Node]*nodeObject),
		objects:   make(map[*goja.Object]*nodeObject),
		fragments: make(map[*html.Node]bool),
		window:    newEventTarget(),
		timers:    make(map[int64]*timer),
	}

	r.loop.Start()
	err = r.Do(func(vm *goja.Runtime) error {
		r.vm = vm
		return r.setup(vm)
	})
	if err != nil {
		r.Dispose()
		return nil, fmt.Errorf("failed to build realm: %w", err)
	}

	return r, nil
}

// Do runs fn with exclusive access to the VM and returns its error. While
// the realm is running fn is scheduled on the event loop; once frozen it runs
// on the calling goroutine.
func (r *Realm) Do(fn func(vm *goja.Runtime) error) error {
	r.mu.Lock()
	st := r.state
	r.mu.Unlock()

	switch st {
	case stateClosed:
		return ErrClosed
	case stateFrozen:
		return r.call(r.vm, fn)
	}

	done := make(chan error, 1)
	if !r.loop.RunOnLoop(func(vm *goja.Runtime) {
		done <- r.call(vm, fn)
	}) {
		return ErrClosed
	}

	select {
	case err := <-done:
		return err
	case <-r.stopped:
		select {
		case err := <-done:
			return err
		default:
			return ErrClosed
		}
	}
}

// call runs fn and then the bookkeeping every loop job needs.
func (r *Realm) call(vm *goja.Runtime, fn func(vm *goja.Runtime) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("realm panic: %v", rec)
		}
	}()
	err = fn(vm)
	r.flushRejections()
	r.settle()
	return err
}

// schedule queues fn on the loop without waiting for it.
func (r *Realm) schedule(fn func(vm *goja.Runtime)) {
	r.loop.RunOnLoop(func(vm *goja.Runtime) {
		_ = r.call(vm, func(vm *goja.Runtime) error {
			fn(vm)
			return nil
		})
	})
}

// Eval executes script synchronously in the global scope. Microtasks queued
// by the script run before Eval returns; timers and fetches continue on the
// loop afterwards.
func (r *Realm) Eval(script string) error {
	return r.Do(func(vm *goja.Runtime) error {
		var (
			t     *time.Timer
			fired chan struct{}
		)
		if r.cfg.ScriptTimeout > 0 {
			fired = make(chan struct{})
			t = time.AfterFunc(r.cfg.ScriptTimeout, func() {
				vm.Interrupt(ErrScriptTimeout)
				close(fired)
			})
		}

		_, err := vm.RunString(script)

		if t != nil && !t.Stop() {
			<-fired
			vm.ClearInterrupt()
		}
		if err != nil {
			return fmt.Errorf("script error: %w", err)
		}
		return nil
	})
}

// Freeze halts the event loop. Pending timers and fetch completions are
// dropped; the document stays readable. Freezing twice is a no-op.
func (r *Realm) Freeze() {
	r.mu.Lock()
	if r.state != stateRunning {
		r.mu.Unlock()
		return
	}
	r.state = stateFrozen
	r.mu.Unlock()

	if r.vm != nil {
		r.vm.Interrupt(errFrozen)
	}
	r.loop.Stop()
	if r.vm != nil {
		r.vm.ClearInterrupt()
	}
	r.stopOnce.Do(func() { close(r.stopped) })
}

// Dispose releases the realm. Listeners become inert, in-flight fetches are
// cancelled and later calls return ErrClosed. Safe to call more than once.
func (r *Realm) Dispose() {
	r.mu.Lock()
	if r.state == stateClosed {
		r.mu.Unlock()
		return
	}
	prev := r.state
	r.state = stateClosed
	r.mu.Unlock()

	r.cancel()
	if prev == stateRunning && r.vm != nil {
		r.vm.Interrupt(ErrClosed)
	}
	r.loop.Terminate()
	r.stopOnce.Do(func() { close(r.stopped) })

	r.nodes = nil
	r.objects = nil
	r.fragments = nil
	r.timers = nil
	r.idle = nil
	r.rejections = nil
}

// Closed reports whether Dispose has been called.
func (r *Realm) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == stateClosed
}

// Serialize renders the whole document, doctype included.
func (r *Realm) Serialize() (string, error) {
	var out string
	err := r.Do(func(*goja.Runtime) error {
		var buf bytes.Buffer
		if err := html.Render(&buf, r.doc); err != nil {
			return fmt.Errorf("failed to serialize document: %w", err)
		}
		out = buf.String()
		return nil
	})
	return out, err
}

// Document exposes the live document to goquery. Only use it inside Do or
// after Freeze.
func (r *Realm) Document() *goquery.Document {
	return goquery.NewDocumentFromNode(r.doc)
}

// XPath returns all nodes matching expr. Same access rules as Document.
func (r *Realm) XPath(expr string) ([]*html.Node, error) {
	return htmlquery.QueryAll(r.doc, expr)
}

// URL returns the current location, which history.pushState may change.
func (r *Realm) URL() string {
	var out string
	_ = r.Do(func(*goja.Runtime) error {
		out = r.url.String()
		return nil
	})
	return out
}

// Idle returns a channel that is closed as soon as no timers or fetches
// are outstanding, which may be immediately. On a frozen or closed realm the
// channel never closes.
func (r *Realm) Idle() <-chan struct{} {
	ch := make(chan struct{})
	r.mu.Lock()
	running := r.state == stateRunning
	r.mu.Unlock()
	if !running {
		return ch
	}
	_ = r.Do(func(*goja.Runtime) error {
		r.idle = append(r.idle, ch)
		return nil
	})
	return ch
}

// Pending reports the number of outstanding timers and fetches.
func (r *Realm) Pending() int {
	n := 0
	_ = r.Do(func(*goja.Runtime) error {
		n = r.pending
		return nil
	})
	return n
}

// Console returns a copy of everything the application logged.
func (r *Realm) Console() []LogEntry {
	r.consoleMu.Lock()
	defer r.consoleMu.Unlock()
	return append([]LogEntry{}, r.console...)
}

// OnEvent registers fn for events named name dispatched on, or bubbling to,
// the window. The returned function removes the listener; after Dispose the
// listener is inert anyway.
func (r *Realm) OnEvent(name string, fn func()) (func(), error) {
	l := &listener{goFn: fn}
	err := r.Do(func(*goja.Runtime) error {
		r.window.add(name, l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return func() { l.inert.Store(true) }, nil
}

func (r *Realm) settle() {
	if r.pending > 0 || len(r.idle) == 0 {
		return
	}
	for _, ch := range r.idle {
		close(ch)
	}
	r.idle = nil
}

func (r *Realm) trackRejection(p *goja.Promise, op goja.PromiseRejectionOperation) {
	switch op {
	case goja.PromiseRejectionReject:
		r.rejections = append(r.rejections, p)
	case goja.PromiseRejectionHandle:
		for i, q := range r.rejections {
			if q == p {
				r.rejections = append(r.rejections[:i], r.rejections[i+1:]...)
				break
			}
		}
	}
}

func (r *Realm) flushRejections() {
	if len(r.rejections) == 0 {
		return
	}
	rejected := r.rejections
	r.rejections = nil
	for _, p := range rejected {
		reason := describe(p.Result())
		if r.cfg.OnRejection != nil {
			r.cfg.OnRejection(reason)
		} else {
			r.logger.Warn("Unhandled promise rejection", zap.String("reason", reason))
		}
	}
}

// reportError surfaces an uncaught error from a timer or listener.
func (r *Realm) reportError(err error) {
	if r.cfg.OnError != nil {
		r.cfg.OnError(err)
		return
	}
	r.logger.Error("Uncaught error", zap.Error(err))
}

func describe(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if obj, ok := v.(*goja.Object); ok {
		if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
			return stack.String()
		}
	}
	return v.String()
}
