package realm

import (
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// classList is the live DOMTokenList over an element's class attribute.
type classList struct {
	r *Realm
	n *html.Node
}

func (c *classList) write(list []string) {
	setAttr(c.n, "class", strings.Join(list, " "))
}

func (c *classList) Get(key string) goja.Value {
	vm := c.r.vm
	list := classes(c.n)
	if i, err := strconv.Atoi(key); err == nil {
		if i >= 0 && i < len(list) {
			return vm.ToValue(list[i])
		}
		return nil
	}
	switch key {
	case "length":
		return vm.ToValue(len(list))
	case "value":
		v, _ := getAttr(c.n, "class")
		return vm.ToValue(v)
	case "toString":
		return vm.ToValue(func(goja.FunctionCall) goja.Value {
			v, _ := getAttr(c.n, "class")
			return vm.ToValue(v)
		})
	case "item":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			i := int(call.Argument(0).ToInteger())
			if i < 0 || i >= len(classes(c.n)) {
				return goja.Null()
			}
			return vm.ToValue(classes(c.n)[i])
		})
	case "contains":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(hasClasses(c.n, []string{call.Argument(0).String()}))
		})
	case "add":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			list := classes(c.n)
			for _, arg := range call.Arguments {
				list = append(list, arg.String())
			}
			if len(call.Arguments) > 0 {
				c.write(dedupe(list))
			}
			return goja.Undefined()
		})
	case "remove":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			list := classes(c.n)
			for _, arg := range call.Arguments {
				list = without(list, arg.String())
			}
			if _, ok := getAttr(c.n, "class"); ok {
				c.write(list)
			}
			return goja.Undefined()
		})
	case "toggle":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			tok := call.Argument(0).String()
			has := hasClasses(c.n, []string{tok})
			want := !has
			if force := call.Argument(1); !goja.IsUndefined(force) {
				want = force.ToBoolean()
			}
			if want && !has {
				c.write(append(classes(c.n), tok))
			} else if !want && has {
				c.write(without(classes(c.n), tok))
			}
			return vm.ToValue(want)
		})
	case "replace":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			old, repl := call.Argument(0).String(), call.Argument(1).String()
			list := classes(c.n)
			found := false
			for i, tok := range list {
				if tok == old {
					list[i] = repl
					found = true
				}
			}
			if found {
				c.write(dedupe(list))
			}
			return vm.ToValue(found)
		})
	case "forEach":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			cb, ok := goja.AssertFunction(call.Argument(0))
			if !ok {
				panic(vm.NewTypeError("callback is not a function"))
			}
			for i, tok := range classes(c.n) {
				if _, err := cb(goja.Undefined(), vm.ToValue(tok), vm.ToValue(i)); err != nil {
					panic(err)
				}
			}
			return goja.Undefined()
		})
	}
	return nil
}

func (c *classList) Set(key string, val goja.Value) bool {
	if key == "value" {
		setAttr(c.n, "class", stringOrEmpty(val))
	}
	return true
}

func (c *classList) Has(key string) bool { return c.Get(key) != nil }
func (c *classList) Delete(string) bool  { return true }
func (c *classList) Keys() []string {
	keys := make([]string, len(classes(c.n)))
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

func without(list []string, tok string) []string {
	out := list[:0:0]
	for _, t := range list {
		if t != tok {
			out = append(out, t)
		}
	}
	return out
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := list[:0:0]
	for _, t := range list {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// styleDecl is the element's inline CSSStyleDeclaration, backed by the
// style attribute.
type styleDecl struct {
	r *Realm
	n *html.Node
}

type declaration struct {
	prop, value string
}

func (s *styleDecl) parse() []declaration {
	raw, _ := getAttr(s.n, "style")
	var out []declaration
	for _, part := range strings.Split(raw, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" || value == "" {
			continue
		}
		out = append(out, declaration{prop, value})
	}
	return out
}

func (s *styleDecl) write(decls []declaration) {
	if len(decls) == 0 {
		removeAttr(s.n, "style")
		return
	}
	parts := make([]string, len(decls))
	for i, d := range decls {
		parts[i] = d.prop + ": " + d.value + ";"
	}
	setAttr(s.n, "style", strings.Join(parts, " "))
}

func (s *styleDecl) lookup(prop string) string {
	for _, d := range s.parse() {
		if d.prop == prop {
			return d.value
		}
	}
	return ""
}

func (s *styleDecl) setProperty(prop, value string) {
	decls := s.parse()
	for i, d := range decls {
		if d.prop == prop {
			if value == "" {
				decls = append(decls[:i], decls[i+1:]...)
			} else {
				decls[i].value = value
			}
			s.write(decls)
			return
		}
	}
	if value != "" {
		s.write(append(decls, declaration{prop, value}))
	}
}

var objectMethods = map[string]bool{
	"constructor": true, "toString": true, "toLocaleString": true, "valueOf": true,
	"hasOwnProperty": true, "isPrototypeOf": true, "propertyIsEnumerable": true,
	"__proto__": true, "then": true, "toJSON": true,
}

func isStyleKey(key string) bool {
	if key == "" || objectMethods[key] {
		return false
	}
	for _, c := range key {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '-') {
			return false
		}
	}
	return true
}

func (s *styleDecl) Get(key string) goja.Value {
	vm := s.r.vm
	if i, err := strconv.Atoi(key); err == nil {
		decls := s.parse()
		if i >= 0 && i < len(decls) {
			return vm.ToValue(decls[i].prop)
		}
		return nil
	}
	switch key {
	case "cssText":
		v, _ := getAttr(s.n, "style")
		return vm.ToValue(v)
	case "length":
		return vm.ToValue(len(s.parse()))
	case "getPropertyValue":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(s.lookup(strings.ToLower(call.Argument(0).String())))
		})
	case "setProperty":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			value := stringOrEmpty(call.Argument(1))
			if p := stringOrEmpty(call.Argument(2)); p == "important" && value != "" {
				value += " !important"
			}
			s.setProperty(strings.ToLower(call.Argument(0).String()), value)
			return goja.Undefined()
		})
	case "removeProperty":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			prop := strings.ToLower(call.Argument(0).String())
			old := s.lookup(prop)
			s.setProperty(prop, "")
			return vm.ToValue(old)
		})
	case "item":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			decls := s.parse()
			i := int(call.Argument(0).ToInteger())
			if i < 0 || i >= len(decls) {
				return vm.ToValue("")
			}
			return vm.ToValue(decls[i].prop)
		})
	}
	if !isStyleKey(key) {
		return nil
	}
	if strings.Contains(key, "-") {
		return vm.ToValue(s.lookup(key))
	}
	return vm.ToValue(s.lookup(cssProperty(key)))
}

func (s *styleDecl) Set(key string, val goja.Value) bool {
	switch {
	case key == "cssText":
		if v := stringOrEmpty(val); v != "" {
			setAttr(s.n, "style", v)
		} else {
			removeAttr(s.n, "style")
		}
	case strings.Contains(key, "-"):
		s.setProperty(key, stringOrEmpty(val))
	case isStyleKey(key):
		s.setProperty(cssProperty(key), stringOrEmpty(val))
	}
	return true
}

func (s *styleDecl) Has(key string) bool { return s.Get(key) != nil }
func (s *styleDecl) Delete(string) bool  { return true }
func (s *styleDecl) Keys() []string {
	decls := s.parse()
	keys := make([]string, len(decls))
	for i := range decls {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

// dataset maps camelCase keys onto data-* attributes.
type dataset struct {
	r *Realm
	n *html.Node
}

func (d *dataset) Get(key string) goja.Value {
	v, ok := getAttr(d.n, datasetAttr(key))
	if !ok {
		return nil
	}
	return d.r.vm.ToValue(v)
}

func (d *dataset) Set(key string, val goja.Value) bool {
	setAttr(d.n, datasetAttr(key), stringOrEmpty(val))
	return true
}

func (d *dataset) Has(key string) bool {
	_, ok := getAttr(d.n, datasetAttr(key))
	return ok
}

func (d *dataset) Delete(key string) bool {
	removeAttr(d.n, datasetAttr(key))
	return true
}

func (d *dataset) Keys() []string {
	var keys []string
	for _, a := range d.n.Attr {
		if k, ok := datasetKey(a.Key); ok {
			keys = append(keys, k)
		}
	}
	return keys
}
