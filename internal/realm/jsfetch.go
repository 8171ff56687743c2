package realm

import (
	"net/http"
	"strings"

	"github.com/GriffinCanCode/ssrender/internal/fetch"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

func (r *Realm) installFetch(vm *goja.Runtime) {
	_ = vm.Set("fetch", r.fetch)
}

// fetch implements window.fetch on top of the configured Fetcher. The
// request runs on its own goroutine; settlement is posted back to the loop.
func (r *Realm) fetch(call goja.FunctionCall) goja.Value {
	vm := r.vm
	promise, resolve, reject := vm.NewPromise()

	req, err := r.buildRequest(call.Argument(0), call.Argument(1))
	if err != nil {
		reject(vm.NewTypeError("Failed to execute 'fetch': " + err.Error()))
		return vm.ToValue(promise)
	}
	if r.cfg.Fetcher == nil {
		reject(vm.NewTypeError("Failed to fetch: network access is disabled"))
		return vm.ToValue(promise)
	}

	r.pending++
	go func() {
		resp, err := r.cfg.Fetcher.Fetch(r.ctx, req)
		r.schedule(func(vm *goja.Runtime) {
			r.pending--
			if err != nil {
				r.logger.Debug("Fetch failed", zap.String("url", req.URL), zap.Error(err))
				reject(vm.NewTypeError("Failed to fetch: " + err.Error()))
				return
			}
			resolve(r.newResponse(vm, resp))
		})
	}()

	return vm.ToValue(promise)
}

func (r *Realm) buildRequest(input, init goja.Value) (*fetch.Request, error) {
	req := &fetch.Request{Method: http.MethodGet, Header: make(http.Header)}

	raw := ""
	if obj, ok := input.(*goja.Object); ok && obj.Get("url") != nil {
		raw = obj.Get("url").String()
		r.applyInit(req, obj)
	} else {
		raw = input.String()
	}
	if obj, ok := init.(*goja.Object); ok {
		r.applyInit(req, obj)
	}

	u, err := r.url.Parse(raw)
	if err != nil {
		return nil, err
	}
	u.Fragment = ""
	req.URL = u.String()
	return req, nil
}

func (r *Realm) applyInit(req *fetch.Request, init *goja.Object) {
	if m := init.Get("method"); m != nil && !goja.IsUndefined(m) {
		req.Method = strings.ToUpper(m.String())
	}
	if h, ok := init.Get("headers").(*goja.Object); ok {
		for _, k := range h.Keys() {
			req.Header.Set(k, h.Get(k).String())
		}
	}
	if b := init.Get("body"); b != nil && !goja.IsUndefined(b) && !goja.IsNull(b) {
		if data := r.bytesOf(r.vm, b); data != nil {
			req.Body = data
		}
	}
}

func (r *Realm) newResponse(vm *goja.Runtime, resp *fetch.Response) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("ok", resp.OK())
	_ = obj.Set("status", resp.Status)
	_ = obj.Set("statusText", resp.StatusText)
	_ = obj.Set("url", resp.URL)
	_ = obj.Set("redirected", false)
	_ = obj.Set("type", "basic")
	_ = obj.Set("bodyUsed", false)
	_ = obj.Set("headers", r.newHeaders(vm, resp.Header))

	body := resp.Body
	settled := func(v goja.Value, rejected bool) goja.Value {
		p, resolve, reject := vm.NewPromise()
		if rejected {
			reject(v)
		} else {
			resolve(v)
		}
		return vm.ToValue(p)
	}

	_ = obj.Set("text", func(goja.FunctionCall) goja.Value {
		return settled(vm.ToValue(string(body)), false)
	})
	_ = obj.Set("json", func(goja.FunctionCall) goja.Value {
		parse, _ := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
		v, err := parse(goja.Undefined(), vm.ToValue(string(body)))
		if ex, ok := err.(*goja.Exception); ok {
			return settled(ex.Value(), true)
		}
		if err != nil {
			return settled(vm.NewGoError(err), true)
		}
		return settled(v, false)
	})
	_ = obj.Set("arrayBuffer", func(goja.FunctionCall) goja.Value {
		return settled(vm.ToValue(vm.NewArrayBuffer(append([]byte(nil), body...))), false)
	})
	_ = obj.Set("clone", func(goja.FunctionCall) goja.Value {
		return r.newResponse(vm, resp)
	})
	return obj
}

func (r *Realm) newHeaders(vm *goja.Runtime, h http.Header) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("get", func(call goja.FunctionCall) goja.Value {
		values := h.Values(call.Argument(0).String())
		if len(values) == 0 {
			return goja.Null()
		}
		return vm.ToValue(strings.Join(values, ", "))
	})
	_ = obj.Set("has", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(len(h.Values(call.Argument(0).String())) > 0)
	})
	_ = obj.Set("forEach", func(call goja.FunctionCall) goja.Value {
		cb, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("callback is not a function"))
		}
		for k, values := range h {
			if _, err := cb(goja.Undefined(), vm.ToValue(strings.Join(values, ", ")), vm.ToValue(strings.ToLower(k))); err != nil {
				panic(err)
			}
		}
		return goja.Undefined()
	})
	return obj
}
