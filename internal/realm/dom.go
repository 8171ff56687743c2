package realm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// nodeObject is the JS face of one html.Node. Unknown properties land in
// expando so frameworks can hang their own bookkeeping off nodes.
type nodeObject struct {
	r       *Realm
	n       *html.Node
	obj     *goja.Object
	target  *eventTarget
	expando map[string]goja.Value
	keys    []string

	classList *goja.Object
	style     *goja.Object
	dataset   *goja.Object
}

// wrap returns the unique JS object for n, or null.
func (r *Realm) wrap(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	return r.wrapObject(n).obj
}

func (r *Realm) wrapObject(n *html.Node) *nodeObject {
	if o, ok := r.nodes[n]; ok {
		return o
	}
	o := &nodeObject{r: r, n: n, target: newEventTarget(), expando: make(map[string]goja.Value)}
	o.obj = r.vm.NewDynamicObject(o)
	if proto := r.protoFor(n); proto != nil {
		_ = o.obj.SetPrototype(proto)
	}
	r.nodes[n] = o
	r.objects[o.obj] = o
	return o
}

func (r *Realm) wrapAll(nodes []*html.Node) goja.Value {
	items := make([]interface{}, len(nodes))
	for i, n := range nodes {
		items[i] = r.wrap(n)
	}
	return r.vm.NewArray(items...)
}

func (r *Realm) unwrap(v goja.Value) *html.Node {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	if o, ok := r.objects[obj]; ok {
		return o.n
	}
	return nil
}

func (r *Realm) mustNode(v goja.Value, method string) *html.Node {
	n := r.unwrap(v)
	if n == nil {
		panic(r.vm.NewTypeError(fmt.Sprintf("Failed to execute '%s' on 'Node': parameter is not of type 'Node'.", method)))
	}
	return n
}

// toNode converts a node or string argument of append-like methods.
func (r *Realm) toNode(v goja.Value) *html.Node {
	if n := r.unwrap(v); n != nil {
		return n
	}
	return &html.Node{Type: html.TextNode, Data: v.String()}
}

func (r *Realm) protoFor(n *html.Node) *goja.Object {
	switch n.Type {
	case html.ElementNode:
		if n.Namespace == "svg" {
			return r.protos["SVGElement"]
		}
		return r.protos["HTMLElement"]
	case html.TextNode:
		return r.protos["Text"]
	case html.CommentNode:
		return r.protos["Comment"]
	case html.DoctypeNode:
		return r.protos["DocumentType"]
	case html.DocumentNode:
		if r.fragments[n] {
			return r.protos["DocumentFragment"]
		}
		return r.protos["Document"]
	}
	return nil
}

func (r *Realm) connected(n *html.Node) bool {
	return contains(r.doc, n)
}

func (r *Realm) throwDOM(name, msg string) {
	ctor := r.vm.Get("DOMException")
	obj, err := r.vm.New(ctor, r.vm.ToValue(msg), r.vm.ToValue(name))
	if err != nil {
		panic(r.vm.NewTypeError(msg))
	}
	panic(obj)
}

func (r *Realm) compile(sel string) cascadia.Selector {
	s, err := cascadia.Compile(sel)
	if err != nil {
		r.throwDOM("SyntaxError", fmt.Sprintf("'%s' is not a valid selector", sel))
	}
	return s
}

// insert places child under parent before ref, moving it out of its current
// position first. Fragments are emptied into parent.
func (r *Realm) insert(parent, child, ref *html.Node) {
	if ref != nil && ref.Parent != parent {
		r.throwDOM("NotFoundError", "The node before which the new node is to be inserted is not a child of this node.")
	}
	if r.fragments[child] {
		for c := child.FirstChild; c != nil; {
			next := c.NextSibling
			child.RemoveChild(c)
			parent.InsertBefore(c, ref)
			c = next
		}
		return
	}
	if contains(child, parent) {
		r.throwDOM("HierarchyRequestError", "The new child element contains the parent.")
	}
	if child.Type == html.DocumentNode {
		r.throwDOM("HierarchyRequestError", "Nodes of type '#document' may not be inserted.")
	}
	if ref == child {
		ref = child.NextSibling
	}
	detach(child)
	parent.InsertBefore(child, ref)
}

func (o *nodeObject) fn(f func(call goja.FunctionCall) goja.Value) goja.Value {
	return o.r.vm.ToValue(f)
}

func (o *nodeObject) fragment() bool {
	return o.r.fragments[o.n]
}

func (o *nodeObject) Get(key string) goja.Value {
	if v := o.common(key); v != nil {
		return v
	}
	switch o.n.Type {
	case html.ElementNode:
		if v := o.parentMixin(key); v != nil {
			return v
		}
		if v := o.element(key); v != nil {
			return v
		}
	case html.DocumentNode:
		if v := o.parentMixin(key); v != nil {
			return v
		}
		if !o.fragment() {
			if v := o.document(key); v != nil {
				return v
			}
		}
	case html.TextNode, html.CommentNode:
		if v := o.characterData(key); v != nil {
			return v
		}
	case html.DoctypeNode:
		if key == "name" {
			return o.r.vm.ToValue(o.n.Data)
		}
	}
	return o.expando[key]
}

func (o *nodeObject) Set(key string, val goja.Value) bool {
	if o.set(key, val) {
		return true
	}
	if _, ok := o.expando[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.expando[key] = val
	return true
}

func (o *nodeObject) Has(key string) bool {
	return o.Get(key) != nil
}

func (o *nodeObject) Delete(key string) bool {
	if _, ok := o.expando[key]; ok {
		delete(o.expando, key)
		for i, k := range o.keys {
			if k == key {
				o.keys = append(o.keys[:i], o.keys[i+1:]...)
				break
			}
		}
	}
	return true
}

func (o *nodeObject) Keys() []string {
	return append([]string(nil), o.keys...)
}

func (o *nodeObject) common(key string) goja.Value {
	r, n, vm := o.r, o.n, o.r.vm
	switch key {
	case "nodeType":
		return vm.ToValue(nodeType(n, o.fragment()))
	case "nodeName":
		return vm.ToValue(nodeName(n, o.fragment()))
	case "nodeValue":
		if n.Type == html.TextNode || n.Type == html.CommentNode {
			return vm.ToValue(n.Data)
		}
		return goja.Null()
	case "textContent":
		if n.Type == html.DocumentNode && !o.fragment() || n.Type == html.DoctypeNode {
			return goja.Null()
		}
		return vm.ToValue(textContent(n))
	case "parentNode":
		return r.wrap(n.Parent)
	case "parentElement":
		if isElement(n.Parent) {
			return r.wrap(n.Parent)
		}
		return goja.Null()
	case "childNodes":
		var kids []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			kids = append(kids, c)
		}
		return r.wrapAll(kids)
	case "firstChild":
		return r.wrap(n.FirstChild)
	case "lastChild":
		return r.wrap(n.LastChild)
	case "nextSibling":
		return r.wrap(n.NextSibling)
	case "previousSibling":
		return r.wrap(n.PrevSibling)
	case "nextElementSibling":
		return r.wrap(nextElement(n))
	case "previousElementSibling":
		return r.wrap(prevElement(n))
	case "ownerDocument":
		if n == r.doc {
			return goja.Null()
		}
		return r.wrap(r.doc)
	case "isConnected":
		return vm.ToValue(r.connected(n))
	case "baseURI":
		return vm.ToValue(r.url.String())
	case "hasChildNodes":
		return o.fn(func(goja.FunctionCall) goja.Value {
			return vm.ToValue(n.FirstChild != nil)
		})
	case "appendChild":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			child := r.mustNode(call.Argument(0), "appendChild")
			r.insert(n, child, nil)
			return call.Argument(0)
		})
	case "insertBefore":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			child := r.mustNode(call.Argument(0), "insertBefore")
			r.insert(n, child, r.unwrap(call.Argument(1)))
			return call.Argument(0)
		})
	case "removeChild":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			child := r.mustNode(call.Argument(0), "removeChild")
			if child.Parent != n {
				r.throwDOM("NotFoundError", "The node to be removed is not a child of this node.")
			}
			n.RemoveChild(child)
			return call.Argument(0)
		})
	case "replaceChild":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			repl := r.mustNode(call.Argument(0), "replaceChild")
			old := r.mustNode(call.Argument(1), "replaceChild")
			if old.Parent != n {
				r.throwDOM("NotFoundError", "The node to be replaced is not a child of this node.")
			}
			if repl != old {
				r.insert(n, repl, old)
				n.RemoveChild(old)
			}
			return call.Argument(1)
		})
	case "remove":
		return o.fn(func(goja.FunctionCall) goja.Value {
			detach(n)
			return goja.Undefined()
		})
	case "contains":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			other := r.unwrap(call.Argument(0))
			return vm.ToValue(other != nil && contains(n, other))
		})
	case "cloneNode":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			c := cloneNode(n, call.Argument(0).ToBoolean())
			if o.fragment() {
				r.fragments[c] = true
			}
			return r.wrap(c)
		})
	case "isSameNode":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(r.unwrap(call.Argument(0)) == n)
		})
	case "getRootNode":
		return o.fn(func(goja.FunctionCall) goja.Value {
			root := n
			for root.Parent != nil {
				root = root.Parent
			}
			return r.wrap(root)
		})
	case "normalize":
		return o.fn(func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	case "before", "after", "replaceWith":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			parent := n.Parent
			if parent == nil {
				return goja.Undefined()
			}
			ref := n
			if key == "after" {
				ref = n.NextSibling
			}
			for _, arg := range call.Arguments {
				r.insert(parent, r.toNode(arg), ref)
			}
			if key == "replaceWith" && n.Parent == parent {
				parent.RemoveChild(n)
			}
			return goja.Undefined()
		})
	case "addEventListener":
		return o.fn(r.addListenerFunc(o.target))
	case "removeEventListener":
		return o.fn(r.removeListenerFunc(o.target))
	case "dispatchEvent":
		return o.fn(r.dispatchFunc(func(ev *goja.Object) bool {
			return r.dispatchFromNode(n, ev)
		}))
	}
	return nil
}

// parentMixin covers elements, documents and fragments.
func (o *nodeObject) parentMixin(key string) goja.Value {
	r, n, vm := o.r, o.n, o.r.vm
	switch key {
	case "children":
		return r.wrapAll(elementChildren(n))
	case "firstElementChild":
		return r.wrap(firstElementChild(n))
	case "lastElementChild":
		return r.wrap(lastElementChild(n))
	case "childElementCount":
		return vm.ToValue(len(elementChildren(n)))
	case "append", "prepend":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			ref := (*html.Node)(nil)
			if key == "prepend" {
				ref = n.FirstChild
			}
			for _, arg := range call.Arguments {
				r.insert(n, r.toNode(arg), ref)
			}
			return goja.Undefined()
		})
	case "replaceChildren":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			removeChildren(n)
			for _, arg := range call.Arguments {
				r.insert(n, r.toNode(arg), nil)
			}
			return goja.Undefined()
		})
	case "querySelector":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			sel := r.compile(call.Argument(0).String())
			return r.wrap(findFirst(n, sel.Match))
		})
	case "querySelectorAll":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			sel := r.compile(call.Argument(0).String())
			return r.wrapAll(findAll(n, sel.Match))
		})
	case "getElementsByTagName":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			tag := strings.ToLower(call.Argument(0).String())
			return r.wrapAll(findAll(n, func(e *html.Node) bool {
				return tag == "*" || strings.ToLower(e.Data) == tag
			}))
		})
	case "getElementsByClassName":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			want := strings.Fields(call.Argument(0).String())
			if len(want) == 0 {
				return vm.NewArray()
			}
			return r.wrapAll(findAll(n, func(e *html.Node) bool {
				return hasClasses(e, want)
			}))
		})
	case "getElementById":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			id := call.Argument(0).String()
			return r.wrap(findFirst(n, func(e *html.Node) bool {
				v, ok := getAttr(e, "id")
				return ok && v == id
			}))
		})
	}
	return nil
}

func (o *nodeObject) characterData(key string) goja.Value {
	n, vm := o.n, o.r.vm
	switch key {
	case "data", "wholeText":
		return vm.ToValue(n.Data)
	case "length":
		return vm.ToValue(len([]rune(n.Data)))
	case "appendData":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			n.Data += call.Argument(0).String()
			return goja.Undefined()
		})
	}
	return nil
}

func (o *nodeObject) set(key string, val goja.Value) bool {
	n := o.n
	switch key {
	case "textContent":
		switch n.Type {
		case html.TextNode, html.CommentNode:
			n.Data = stringOrEmpty(val)
		case html.ElementNode:
			setTextContent(n, stringOrEmpty(val))
		case html.DocumentNode:
			if o.fragment() {
				setTextContent(n, stringOrEmpty(val))
			}
		}
		return true
	case "nodeValue", "data":
		if n.Type == html.TextNode || n.Type == html.CommentNode {
			n.Data = stringOrEmpty(val)
			return true
		}
		return key == "nodeValue"
	}

	switch {
	case n.Type == html.ElementNode:
		return o.setElement(key, val)
	case n.Type == html.DocumentNode && !o.fragment():
		return o.setDocument(key, val)
	}
	return false
}

func stringOrEmpty(v goja.Value) string {
	if v == nil || goja.IsNull(v) || goja.IsUndefined(v) {
		return ""
	}
	return v.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
