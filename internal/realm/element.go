package realm

import (
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// reflected maps element properties to the attributes they mirror.
var reflected = map[string]string{
	"id":          "id",
	"className":   "class",
	"title":       "title",
	"lang":        "lang",
	"dir":         "dir",
	"href":        "href",
	"src":         "src",
	"alt":         "alt",
	"type":        "type",
	"name":        "name",
	"rel":         "rel",
	"placeholder": "placeholder",
	"htmlFor":     "for",
	"content":     "content",
	"charset":     "charset",
	"target":      "target",
	"action":      "action",
	"method":      "method",
	"value":       "value",
	"role":        "role",
}

var booleanReflected = map[string]string{
	"hidden":   "hidden",
	"disabled": "disabled",
	"checked":  "checked",
	"selected": "selected",
	"required": "required",
	"readOnly": "readonly",
	"multiple": "multiple",
	"async":    "async",
	"defer":    "defer",
}

var zeroMetrics = []string{
	"offsetWidth", "offsetHeight", "offsetTop", "offsetLeft",
	"clientWidth", "clientHeight", "clientTop", "clientLeft",
	"scrollWidth", "scrollHeight", "scrollTop", "scrollLeft",
}

func (o *nodeObject) element(key string) goja.Value {
	r, n, vm := o.r, o.n, o.r.vm

	if attr, ok := reflected[key]; ok {
		v, _ := getAttr(n, attr)
		return vm.ToValue(v)
	}
	if attr, ok := booleanReflected[key]; ok {
		_, has := getAttr(n, attr)
		return vm.ToValue(has)
	}
	for _, m := range zeroMetrics {
		if key == m {
			return vm.ToValue(0)
		}
	}

	switch key {
	case "tagName":
		return vm.ToValue(tagName(n))
	case "localName":
		return vm.ToValue(n.Data)
	case "namespaceURI":
		if n.Namespace == "svg" {
			return vm.ToValue("http://www.w3.org/2000/svg")
		}
		return vm.ToValue("http://www.w3.org/1999/xhtml")
	case "classList":
		if o.classList == nil {
			o.classList = vm.NewDynamicObject(&classList{r: r, n: n})
		}
		return o.classList
	case "style":
		if o.style == nil {
			o.style = vm.NewDynamicObject(&styleDecl{r: r, n: n})
		}
		return o.style
	case "dataset":
		if o.dataset == nil {
			o.dataset = vm.NewDynamicObject(&dataset{r: r, n: n})
		}
		return o.dataset
	case "attributes":
		items := make([]interface{}, len(n.Attr))
		for i, a := range n.Attr {
			attr := vm.NewObject()
			_ = attr.Set("name", a.Key)
			_ = attr.Set("localName", a.Key)
			_ = attr.Set("value", a.Val)
			items[i] = attr
		}
		return vm.NewArray(items...)
	case "innerHTML":
		s, err := innerHTML(n)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(s)
	case "outerHTML":
		s, err := outerHTML(n)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(s)
	case "innerText", "outerText":
		return vm.ToValue(textContent(n))
	case "getAttribute":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			v, ok := getAttr(n, attrName(n, call.Argument(0).String()))
			if !ok {
				return goja.Null()
			}
			return vm.ToValue(v)
		})
	case "getAttributeNS":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			v, ok := getAttr(n, call.Argument(1).String())
			if !ok {
				return goja.Null()
			}
			return vm.ToValue(v)
		})
	case "setAttribute":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			setAttr(n, attrName(n, call.Argument(0).String()), call.Argument(1).String())
			return goja.Undefined()
		})
	case "setAttributeNS":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			setAttr(n, call.Argument(1).String(), call.Argument(2).String())
			return goja.Undefined()
		})
	case "removeAttribute":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			removeAttr(n, attrName(n, call.Argument(0).String()))
			return goja.Undefined()
		})
	case "removeAttributeNS":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			removeAttr(n, call.Argument(1).String())
			return goja.Undefined()
		})
	case "hasAttribute":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			_, ok := getAttr(n, attrName(n, call.Argument(0).String()))
			return vm.ToValue(ok)
		})
	case "hasAttributes":
		return o.fn(func(goja.FunctionCall) goja.Value {
			return vm.ToValue(len(n.Attr) > 0)
		})
	case "toggleAttribute":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			name := attrName(n, call.Argument(0).String())
			_, has := getAttr(n, name)
			want := !has
			if force := call.Argument(1); !goja.IsUndefined(force) {
				want = force.ToBoolean()
			}
			if want && !has {
				setAttr(n, name, "")
			} else if !want {
				removeAttr(n, name)
			}
			return vm.ToValue(want)
		})
	case "getAttributeNames":
		return o.fn(func(goja.FunctionCall) goja.Value {
			items := make([]interface{}, len(n.Attr))
			for i, a := range n.Attr {
				items[i] = a.Key
			}
			return vm.NewArray(items...)
		})
	case "matches":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(r.compile(call.Argument(0).String()).Match(n))
		})
	case "closest":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			sel := r.compile(call.Argument(0).String())
			for p := n; isElement(p); p = p.Parent {
				if sel.Match(p) {
					return r.wrap(p)
				}
			}
			return goja.Null()
		})
	case "insertAdjacentHTML":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			pos := strings.ToLower(call.Argument(0).String())
			ctx := n
			if pos == "beforebegin" || pos == "afterend" {
				ctx = n.Parent
			}
			nodes, err := parseFragment(call.Argument(1).String(), ctx)
			if err != nil {
				r.throwDOM("SyntaxError", err.Error())
			}
			for _, c := range nodes {
				o.insertAdjacent(pos, c)
			}
			return goja.Undefined()
		})
	case "insertAdjacentElement":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			o.insertAdjacent(strings.ToLower(call.Argument(0).String()), r.mustNode(call.Argument(1), "insertAdjacentElement"))
			return call.Argument(1)
		})
	case "insertAdjacentText":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			o.insertAdjacent(strings.ToLower(call.Argument(0).String()), &html.Node{Type: html.TextNode, Data: call.Argument(1).String()})
			return goja.Undefined()
		})
	case "getBoundingClientRect":
		return o.fn(func(goja.FunctionCall) goja.Value {
			rect := vm.NewObject()
			for _, k := range []string{"x", "y", "width", "height", "top", "left", "right", "bottom"} {
				_ = rect.Set(k, 0)
			}
			return rect
		})
	case "getClientRects":
		return o.fn(func(goja.FunctionCall) goja.Value { return vm.NewArray() })
	case "focus", "blur", "click", "scrollIntoView", "scrollTo", "scrollBy":
		return o.fn(func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	}
	return nil
}

// insertAdjacent places c relative to n at one of the four positions.
func (o *nodeObject) insertAdjacent(pos string, c *html.Node) {
	r, n := o.r, o.n
	switch pos {
	case "beforebegin":
		if n.Parent != nil {
			r.insert(n.Parent, c, n)
		}
	case "afterbegin":
		r.insert(n, c, n.FirstChild)
	case "beforeend":
		r.insert(n, c, nil)
	case "afterend":
		if n.Parent != nil {
			r.insert(n.Parent, c, n.NextSibling)
		}
	default:
		r.throwDOM("SyntaxError", "The value provided ('"+pos+"') is not one of 'beforeBegin', 'afterBegin', 'beforeEnd', or 'afterEnd'.")
	}
}

func (o *nodeObject) setElement(key string, val goja.Value) bool {
	r, n := o.r, o.n

	if attr, ok := reflected[key]; ok {
		setAttr(n, attr, stringOrEmpty(val))
		return true
	}
	if attr, ok := booleanReflected[key]; ok {
		if val.ToBoolean() {
			setAttr(n, attr, "")
		} else {
			removeAttr(n, attr)
		}
		return true
	}

	switch key {
	case "innerHTML":
		nodes, err := parseFragment(stringOrEmpty(val), n)
		if err != nil {
			r.throwDOM("SyntaxError", err.Error())
		}
		removeChildren(n)
		for _, c := range nodes {
			n.AppendChild(c)
		}
		return true
	case "outerHTML":
		parent := n.Parent
		if parent == nil {
			return true
		}
		nodes, err := parseFragment(stringOrEmpty(val), parent)
		if err != nil {
			r.throwDOM("SyntaxError", err.Error())
		}
		for _, c := range nodes {
			parent.InsertBefore(c, n)
		}
		parent.RemoveChild(n)
		return true
	case "innerText", "outerText":
		setTextContent(n, stringOrEmpty(val))
		return true
	case "style":
		if s := stringOrEmpty(val); s != "" {
			setAttr(n, "style", s)
		} else {
			removeAttr(n, "style")
		}
		return true
	}
	return false
}

func (o *nodeObject) document(key string) goja.Value {
	r, n, vm := o.r, o.n, o.r.vm
	switch key {
	case "documentElement":
		return r.wrap(firstElementChild(n))
	case "head":
		return r.wrap(r.head())
	case "body":
		return r.wrap(r.body())
	case "title":
		if t := findFirst(n, func(e *html.Node) bool { return e.Data == "title" }); t != nil {
			return vm.ToValue(strings.TrimSpace(textContent(t)))
		}
		return vm.ToValue("")
	case "doctype":
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.DoctypeNode {
				return r.wrap(c)
			}
		}
		return goja.Null()
	case "readyState":
		return vm.ToValue("complete")
	case "visibilityState":
		return vm.ToValue("visible")
	case "hidden":
		return vm.ToValue(false)
	case "characterSet", "charset", "inputEncoding":
		return vm.ToValue("UTF-8")
	case "contentType":
		return vm.ToValue("text/html")
	case "compatMode":
		return vm.ToValue("CSS1Compat")
	case "cookie", "referrer":
		return vm.ToValue("")
	case "URL", "documentURI":
		return vm.ToValue(r.url.String())
	case "location":
		return r.location
	case "defaultView":
		return vm.GlobalObject()
	case "activeElement", "scrollingElement":
		return r.wrap(r.body())
	case "hasFocus":
		return o.fn(func(goja.FunctionCall) goja.Value { return vm.ToValue(false) })
	case "createElement":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			return r.wrap(newElement(call.Argument(0).String()))
		})
	case "createElementNS":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			tag := call.Argument(1).String()
			if call.Argument(0).String() == "http://www.w3.org/2000/svg" {
				return r.wrap(&html.Node{Type: html.ElementNode, Data: tag, Namespace: "svg"})
			}
			return r.wrap(newElement(tag))
		})
	case "createTextNode":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			return r.wrap(&html.Node{Type: html.TextNode, Data: call.Argument(0).String()})
		})
	case "createComment":
		return o.fn(func(call goja.FunctionCall) goja.Value {
			return r.wrap(&html.Node{Type: html.CommentNode, Data: call.Argument(0).String()})
		})
	case "createDocumentFragment":
		return o.fn(func(goja.FunctionCall) goja.Value {
			f := &html.Node{Type: html.DocumentNode}
			r.fragments[f] = true
			return r.wrap(f)
		})
	case "createEvent":
		return o.fn(func(goja.FunctionCall) goja.Value {
			ev, err := vm.New(vm.Get("CustomEvent"), vm.ToValue(""))
			if err != nil {
				panic(vm.NewGoError(err))
			}
			return ev
		})
	}
	return nil
}

func (o *nodeObject) setDocument(key string, val goja.Value) bool {
	r := o.r
	switch key {
	case "title":
		t := findFirst(r.doc, func(e *html.Node) bool { return e.Data == "title" })
		if t == nil {
			head := r.head()
			if head == nil {
				return true
			}
			t = newElement("title")
			head.AppendChild(t)
		}
		setTextContent(t, stringOrEmpty(val))
		return true
	case "cookie":
		return true
	}
	return false
}

func (r *Realm) head() *html.Node {
	return findFirst(r.doc, func(e *html.Node) bool { return e.Data == "head" && e.Namespace == "" })
}

func (r *Realm) body() *html.Node {
	return findFirst(r.doc, func(e *html.Node) bool { return e.Data == "body" && e.Namespace == "" })
}
