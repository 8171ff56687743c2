package realm

import (
	"sync/atomic"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

type listener struct {
	fn      goja.Callable
	key     goja.Value
	this    goja.Value
	goFn    func()
	once    bool
	capture bool
	inert   atomic.Bool
}

// eventTarget holds the listeners registered on one window, document or node.
type eventTarget struct {
	listeners map[string][]*listener
}

func newEventTarget() *eventTarget {
	return &eventTarget{listeners: make(map[string][]*listener)}
}

func (t *eventTarget) add(typ string, l *listener) {
	if l.key != nil {
		for _, existing := range t.listeners[typ] {
			if existing.key != nil && existing.key.SameAs(l.key) && existing.capture == l.capture {
				return
			}
		}
	}
	t.listeners[typ] = append(t.listeners[typ], l)
}

func (t *eventTarget) remove(typ string, key goja.Value, capture bool) {
	list := t.listeners[typ]
	for i, l := range list {
		if l.key != nil && l.key.SameAs(key) && l.capture == capture {
			l.inert.Store(true)
			t.listeners[typ] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (t *eventTarget) drop(typ string, l *listener) {
	list := t.listeners[typ]
	for i, existing := range list {
		if existing == l {
			t.listeners[typ] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// bindEventTarget installs addEventListener, removeEventListener and
// dispatchEvent on obj.
func (r *Realm) bindEventTarget(obj *goja.Object, t *eventTarget, dispatch func(ev *goja.Object) bool) {
	_ = obj.Set("addEventListener", r.addListenerFunc(t))
	_ = obj.Set("removeEventListener", r.removeListenerFunc(t))
	_ = obj.Set("dispatchEvent", r.dispatchFunc(dispatch))
}

func (r *Realm) addListenerFunc(t *eventTarget) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		typ := call.Argument(0).String()
		handler := call.Argument(1)
		if goja.IsUndefined(handler) || goja.IsNull(handler) {
			return goja.Undefined()
		}

		l := &listener{key: handler}
		if fn, ok := goja.AssertFunction(handler); ok {
			l.fn = fn
		} else if obj, ok := handler.(*goja.Object); ok {
			fn, ok := goja.AssertFunction(obj.Get("handleEvent"))
			if !ok {
				return goja.Undefined()
			}
			l.fn = fn
			l.this = obj
		} else {
			return goja.Undefined()
		}

		switch opts := call.Argument(2).(type) {
		case *goja.Object:
			l.once = opts.Get("once") != nil && opts.Get("once").ToBoolean()
			l.capture = opts.Get("capture") != nil && opts.Get("capture").ToBoolean()
		default:
			l.capture = opts.ToBoolean()
		}

		t.add(typ, l)
		return goja.Undefined()
	}
}

func (r *Realm) removeListenerFunc(t *eventTarget) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		capture := false
		switch opts := call.Argument(2).(type) {
		case *goja.Object:
			capture = opts.Get("capture") != nil && opts.Get("capture").ToBoolean()
		default:
			capture = opts.ToBoolean()
		}
		t.remove(call.Argument(0).String(), call.Argument(1), capture)
		return goja.Undefined()
	}
}

func (r *Realm) dispatchFunc(dispatch func(ev *goja.Object) bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		ev, ok := call.Argument(0).(*goja.Object)
		if !ok {
			panic(r.vm.NewTypeError("Failed to execute 'dispatchEvent': parameter 1 is not of type 'Event'."))
		}
		return r.vm.ToValue(dispatch(ev))
	}
}

type hop struct {
	this   goja.Value
	target *eventTarget
}

// dispatchFromNode runs the event on n and, when it bubbles, on each
// ancestor, the document and finally the window.
func (r *Realm) dispatchFromNode(n *html.Node, ev *goja.Object) bool {
	path := []hop{{r.wrap(n), r.wrapObject(n).target}}
	if ev.Get("bubbles").ToBoolean() {
		for p := n.Parent; p != nil; p = p.Parent {
			o := r.wrapObject(p)
			path = append(path, hop{o.obj, o.target})
		}
		if r.connected(n) {
			path = append(path, hop{r.vm.GlobalObject(), r.window})
		}
	}
	return r.dispatch(ev, path)
}

func (r *Realm) dispatchFromWindow(ev *goja.Object) bool {
	return r.dispatch(ev, []hop{{r.vm.GlobalObject(), r.window}})
}

func (r *Realm) dispatch(ev *goja.Object, path []hop) bool {
	_ = ev.Set("target", path[0].this)
	_ = ev.Set("srcElement", path[0].this)
	typ := ev.Get("type").String()

	for i, h := range path {
		phase := 3
		if i == 0 {
			phase = 2
		}
		_ = ev.Set("currentTarget", h.this)
		_ = ev.Set("eventPhase", phase)

		snapshot := append([]*listener(nil), h.target.listeners[typ]...)
		for _, l := range snapshot {
			if l.inert.Load() {
				continue
			}
			if l.once {
				l.inert.Store(true)
				h.target.drop(typ, l)
			}
			r.invoke(l, h.this, ev)
			if flag(ev, "__stopImmediate") {
				break
			}
		}
		if flag(ev, "cancelBubble") {
			break
		}
	}

	_ = ev.Set("currentTarget", goja.Null())
	_ = ev.Set("eventPhase", 0)
	return !flag(ev, "defaultPrevented")
}

func (r *Realm) invoke(l *listener, this goja.Value, ev *goja.Object) {
	if l.goFn != nil {
		l.goFn()
		return
	}
	if l.this != nil {
		this = l.this
	}
	if _, err := l.fn(this, ev); err != nil {
		r.reportError(err)
	}
}

func flag(obj *goja.Object, name string) bool {
	v := obj.Get(name)
	return v != nil && v.ToBoolean()
}
