package realm

import (
	"github.com/dop251/goja"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// installCodecs provides TextEncoder (UTF-8 only, as in browsers) and a
// TextDecoder that accepts any WHATWG encoding label.
func (r *Realm) installCodecs(vm *goja.Runtime) {
	_ = vm.Set("TextEncoder", func(call goja.ConstructorCall) *goja.Object {
		_ = call.This.Set("encoding", "utf-8")
		_ = call.This.Set("encode", func(c goja.FunctionCall) goja.Value {
			s := ""
			if arg := c.Argument(0); !goja.IsUndefined(arg) {
				s = arg.String()
			}
			return r.newUint8Array(vm, []byte(s))
		})
		return nil
	})

	_ = vm.Set("TextDecoder", func(call goja.ConstructorCall) *goja.Object {
		label := "utf-8"
		if arg := call.Argument(0); !goja.IsUndefined(arg) {
			label = arg.String()
		}
		enc, err := htmlindex.Get(label)
		if err != nil {
			panic(vm.NewTypeError("Failed to construct 'TextDecoder': The encoding label provided ('" + label + "') is invalid."))
		}
		name, _ := htmlindex.Name(enc)
		if enc == unicode.UTF8 {
			enc = unicode.UTF8BOM
		}

		_ = call.This.Set("encoding", name)
		_ = call.This.Set("decode", func(c goja.FunctionCall) goja.Value {
			data := r.bytesOf(vm, c.Argument(0))
			if data == nil {
				return vm.ToValue("")
			}
			return vm.ToValue(decode(enc, data))
		})
		return nil
	})
}

func decode(enc encoding.Encoding, data []byte) string {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

func (r *Realm) newUint8Array(vm *goja.Runtime, data []byte) goja.Value {
	arr, err := vm.New(vm.Get("Uint8Array"), vm.ToValue(vm.NewArrayBuffer(data)))
	if err != nil {
		panic(vm.NewGoError(err))
	}
	return arr
}

// bytesOf reads an ArrayBuffer or any ArrayBuffer view.
func (r *Realm) bytesOf(vm *goja.Runtime, v goja.Value) []byte {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	switch x := v.Export().(type) {
	case goja.ArrayBuffer:
		return x.Bytes()
	case []byte:
		return x
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return []byte(v.String())
	}
	var buf goja.ArrayBuffer
	ok = false
	if bv := obj.Get("buffer"); bv != nil {
		buf, ok = bv.Export().(goja.ArrayBuffer)
	}
	if !ok {
		panic(vm.NewTypeError("Failed to execute 'decode' on 'TextDecoder': The provided value is not of type '(ArrayBuffer or ArrayBufferView)'."))
	}
	data := buf.Bytes()
	off := int(obj.Get("byteOffset").ToInteger())
	n := int(obj.Get("byteLength").ToInteger())
	if off < 0 || n < 0 || off+n > len(data) {
		return nil
	}
	return data[off : off+n]
}
