package ssr

import (
	"context"

	"github.com/GriffinCanCode/ssrender/internal/realm"
	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
)

// Chain runs hooks in order and stops at the first error.
func Chain(hooks ...Hook) Hook {
	return func(ctx context.Context, r *realm.Realm) error {
		for _, h := range hooks {
			if h == nil {
				continue
			}
			if err := h(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}
}

// RemoveSelector removes every element matching the CSS selector.
func RemoveSelector(selector string) Hook {
	return func(_ context.Context, r *realm.Realm) error {
		return r.Do(func(*goja.Runtime) error {
			r.Document().Find(selector).Remove()
			return nil
		})
	}
}

// RemoveXPath removes every node matching the XPath expression.
func RemoveXPath(expr string) Hook {
	return func(_ context.Context, r *realm.Realm) error {
		return r.Do(func(*goja.Runtime) error {
			nodes, err := r.XPath(expr)
			if err != nil {
				return err
			}
			for _, n := range nodes {
				if n.Parent != nil {
					n.Parent.RemoveChild(n)
				}
			}
			return nil
		})
	}
}

// RemoveMarker strips the render marker script, for callers that want the
// output to hydrate exactly like a client render.
func RemoveMarker() Hook {
	return func(_ context.Context, r *realm.Realm) error {
		return r.Do(func(*goja.Runtime) error {
			r.Document().Find("head > script").FilterFunction(func(_ int, s *goquery.Selection) bool {
				return s.Text() == realm.MarkerScript
			}).Remove()
			return nil
		})
	}
}

// Eval returns a hook that evaluates script in the realm.
func Eval(script string) Hook {
	return func(_ context.Context, r *realm.Realm) error {
		return r.Eval(script)
	}
}
