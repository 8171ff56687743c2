package realm

import (
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/ssrender/internal/fetch"
	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var protoNames = map[string]string{
	"HTMLElement":      "HTMLElement",
	"SVGElement":       "SVGElement",
	"Text":             "Text",
	"Comment":          "Comment",
	"Document":         "HTMLDocument",
	"DocumentFragment": "DocumentFragment",
	"DocumentType":     "DocumentType",
}

// setup configures global objects for a fresh realm
func (r *Realm) setup(vm *goja.Runtime) error {
	g := vm.GlobalObject()

	// The loop's module registry installs these; a browser has none of them.
	for _, name := range []string{"require", "process", "module", "exports"} {
		_ = g.Delete(name)
	}

	if _, err := vm.RunString(prelude); err != nil {
		return fmt.Errorf("failed to install prelude: %w", err)
	}
	r.protos = make(map[string]*goja.Object, len(protoNames))
	for name, global := range protoNames {
		ctor := g.Get(global)
		if ctor == nil {
			continue
		}
		if proto, ok := ctor.ToObject(vm).Get("prototype").(*goja.Object); ok {
			r.protos[name] = proto
		}
	}

	vm.SetPromiseRejectionTracker(r.trackRejection)

	for _, name := range []string{"window", "self", "top", "parent", "frames"} {
		_ = g.Set(name, g)
	}
	r.bindEventTarget(g, r.window, r.dispatchFromWindow)

	r.installConsole(vm)
	r.installTimers(vm)
	r.installViewport(vm)
	r.installCodecs(vm)
	r.installFetch(vm)
	r.installNavigation(vm)

	_ = g.Set("document", r.wrap(r.doc))

	if len(r.cfg.Meta) > 0 {
		r.addMeta(r.cfg.Meta)
	}
	return nil
}

// Stamp marks the document and window as server rendered.
func (r *Realm) Stamp() error {
	return r.Do(func(vm *goja.Runtime) error {
		r.stamp(vm)
		return nil
	})
}

func (r *Realm) stamp(vm *goja.Runtime) {
	if head := r.head(); head != nil {
		script := newElement("script")
		script.AppendChild(&html.Node{Type: html.TextNode, Data: MarkerScript})
		head.AppendChild(script)
	}
	g := vm.GlobalObject()
	_ = g.Set("__ssrRendered", true)
	_ = g.Set("rendering", true)
}

func (r *Realm) addMeta(attrs map[string]string) {
	head := r.head()
	if head == nil {
		return
	}
	meta := newElement("meta")
	for _, k := range sortedKeys(attrs) {
		meta.Attr = append(meta.Attr, html.Attribute{Key: k, Val: attrs[k]})
	}
	head.AppendChild(meta)
}

func (r *Realm) installConsole(vm *goja.Runtime) {
	console := vm.NewObject()
	for _, level := range []string{"log", "info", "debug", "warn", "error", "trace"} {
		_ = console.Set(level, r.makeConsoleFunc(level))
	}
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"group", "groupCollapsed", "groupEnd", "time", "timeEnd", "table", "assert", "dir", "count"} {
		_ = console.Set(name, noop)
	}
	_ = vm.Set("console", console)
}

// makeConsoleFunc creates a console function
func (r *Realm) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{Level: level, Message: msg, Time: time.Now()})
		r.consoleMu.Unlock()

		if r.cfg.Metrics != nil {
			r.cfg.Metrics.IncConsole(level)
		}

		fields := []zap.Field{zap.String("url", r.cfg.URL), zap.String("source", "console")}
		switch level {
		case "error":
			r.logger.Error(msg, fields...)
		case "warn":
			r.logger.Warn(msg, fields...)
		default:
			r.logger.Debug(msg, fields...)
		}
		return goja.Undefined()
	}
}

// installViewport stubs the APIs that only make sense with a screen.
func (r *Realm) installViewport(vm *goja.Runtime) {
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"alert", "scrollTo", "scroll", "scrollBy", "focus", "blur", "print", "cancelAnimationFrame"} {
		_ = vm.Set(name, noop)
	}
	_ = vm.Set("requestAnimationFrame", func(goja.FunctionCall) goja.Value { return vm.ToValue(0) })
	_ = vm.Set("confirm", func(goja.FunctionCall) goja.Value { return vm.ToValue(false) })
	_ = vm.Set("prompt", func(goja.FunctionCall) goja.Value { return goja.Null() })

	g := vm.GlobalObject()
	for k, v := range map[string]int{
		"innerWidth": 1024, "innerHeight": 768, "outerWidth": 1024, "outerHeight": 768,
		"scrollX": 0, "scrollY": 0, "pageXOffset": 0, "pageYOffset": 0, "devicePixelRatio": 1,
	} {
		_ = g.Set(k, v)
	}
	screen := vm.NewObject()
	_ = screen.Set("width", 1024)
	_ = screen.Set("height", 768)
	_ = g.Set("screen", screen)
}

func (r *Realm) installNavigation(vm *goja.Runtime) {
	r.location = vm.NewObject()
	r.refreshLocation()
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	_ = r.location.Set("assign", noop)
	_ = r.location.Set("replace", noop)
	_ = r.location.Set("reload", noop)
	_ = r.location.Set("toString", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(r.url.String())
	})
	_ = vm.Set("location", r.location)

	r.history = vm.NewObject()
	_ = r.history.Set("length", 1)
	_ = r.history.Set("state", goja.Null())
	_ = r.history.Set("scrollRestoration", "auto")
	_ = r.history.Set("pushState", r.historyUpdate)
	_ = r.history.Set("replaceState", r.historyUpdate)
	for _, name := range []string{"back", "forward", "go"} {
		_ = r.history.Set(name, noop)
	}
	_ = vm.Set("history", r.history)

	navigator := vm.NewObject()
	_ = navigator.Set("userAgent", fetch.UserAgent)
	_ = navigator.Set("language", "en-US")
	_ = navigator.Set("languages", vm.NewArray("en-US", "en"))
	_ = navigator.Set("platform", "")
	_ = navigator.Set("onLine", true)
	_ = navigator.Set("cookieEnabled", false)
	_ = navigator.Set("hardwareConcurrency", 1)
	_ = vm.Set("navigator", navigator)
}

// historyUpdate backs pushState and replaceState; the new URL becomes the
// realm's location without any navigation.
func (r *Realm) historyUpdate(call goja.FunctionCall) goja.Value {
	_ = r.history.Set("state", call.Argument(0))
	if target := call.Argument(2); !goja.IsUndefined(target) && !goja.IsNull(target) {
		next, err := r.url.Parse(target.String())
		if err != nil {
			r.throwDOM("SecurityError", fmt.Sprintf("Failed to execute 'pushState': URL '%s' is invalid.", target.String()))
		}
		if next.Scheme != r.url.Scheme || next.Host != r.url.Host {
			r.throwDOM("SecurityError", fmt.Sprintf("Failed to execute 'pushState': A history state object with URL '%s' cannot be created in a document with origin '%s'.", next.String(), r.origin()))
		}
		r.url = next
		r.refreshLocation()
	}
	return goja.Undefined()
}

func (r *Realm) origin() string {
	return r.url.Scheme + "://" + r.url.Host
}

func (r *Realm) refreshLocation() {
	u := r.url
	search := ""
	if u.RawQuery != "" {
		search = "?" + u.RawQuery
	}
	hash := ""
	if u.Fragment != "" {
		hash = "#" + u.EscapedFragment()
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	for k, v := range map[string]string{
		"href":     u.String(),
		"origin":   r.origin(),
		"protocol": u.Scheme + ":",
		"host":     u.Host,
		"hostname": u.Hostname(),
		"port":     u.Port(),
		"pathname": path,
		"search":   search,
		"hash":     hash,
	} {
		_ = r.location.Set(k, v)
	}
}
