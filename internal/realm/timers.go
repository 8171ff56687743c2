package realm

import (
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
)

type timer struct {
	timeout  *eventloop.Timer
	interval *eventloop.Interval
}

// installTimers replaces the loop's timer globals with numbered, tracked
// ones so the realm knows when the application has gone quiet.
func (r *Realm) installTimers(vm *goja.Runtime) {
	_ = vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return r.startTimer(vm, call, false)
	})
	_ = vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return r.startTimer(vm, call, true)
	})
	clearFn := func(call goja.FunctionCall) goja.Value {
		r.clearTimer(call.Argument(0).ToInteger())
		return goja.Undefined()
	}
	_ = vm.Set("clearTimeout", clearFn)
	_ = vm.Set("clearInterval", clearFn)
}

func (r *Realm) startTimer(vm *goja.Runtime, call goja.FunctionCall, repeat bool) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		// String handlers are not evaluated.
		return vm.ToValue(0)
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	r.timerSeq++
	id := r.timerSeq
	t := &timer{}
	r.timers[id] = t
	r.pending++

	run := func() {
		if _, err := fn(goja.Undefined(), args...); err != nil {
			r.reportError(err)
		}
	}

	if repeat {
		if delay < time.Millisecond {
			delay = time.Millisecond
		}
		t.interval = r.loop.SetInterval(func(vm *goja.Runtime) {
			_ = r.call(vm, func(*goja.Runtime) error {
				run()
				return nil
			})
		}, delay)
	} else {
		t.timeout = r.loop.SetTimeout(func(vm *goja.Runtime) {
			_ = r.call(vm, func(*goja.Runtime) error {
				if _, live := r.timers[id]; !live {
					return nil
				}
				delete(r.timers, id)
				r.pending--
				run()
				return nil
			})
		}, delay)
	}
	return vm.ToValue(id)
}

func (r *Realm) clearTimer(id int64) {
	t, ok := r.timers[id]
	if !ok {
		return
	}
	delete(r.timers, id)
	r.pending--
	if t.timeout != nil {
		r.loop.ClearTimeout(t.timeout)
	}
	if t.interval != nil {
		r.loop.ClearInterval(t.interval)
	}
}
