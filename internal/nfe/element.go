// =============================================================================
// NF-e to DANFE Converter - Field Accessor
// =============================================================================
//
// Element resolves slash separated paths ("emit/enderEmit/xMun") relative to
// a node of the invoice tree. A trailing "@name" segment reads an attribute
// ("@Id").
//
// TWO LAYERS:
//   - Lookup returns (value, error) and reports *NotFoundError when no path
//     yields non-empty text. Tests and callers that need to know *why* a field
//     is blank use this layer.
//   - Value / First always return a string. A failure becomes "". This is the
//     layer the extractor uses, so a missing field blanks one cell of the
//     DANFE instead of failing the whole document.
//
// All methods are safe on a nil *Element.
//
// =============================================================================

package nfe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is matched by every *NotFoundError.
var ErrNotFound = errors.New("nfe: field not found")

// NotFoundError lists the paths that were tried without yielding text.
type NotFoundError struct {
	Paths []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("nfe: no value at %s", strings.Join(e.Paths, " | "))
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// =============================================================================
// ELEMENT
// =============================================================================

// Element is a namespace aware handle to one node of the invoice tree.
type Element struct {
	el *etree.Element
	ns string
}

// Tag returns the local name of the element.
func (e *Element) Tag() string {
	if e == nil {
		return ""
	}
	return e.el.Tag
}

// Find returns the first element reached by path, or nil.
func (e *Element) Find(path string) *Element {
	if e == nil {
		return nil
	}

	cur := e
	for _, seg := range splitPath(path) {
		cur = cur.child(seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// FindAll returns every element matching the last segment of path, under the
// first element matched by the preceding segments. Document order is kept.
func (e *Element) FindAll(path string) []*Element {
	segs := splitPath(path)
	if e == nil || len(segs) == 0 {
		return nil
	}

	parent := e.Find(strings.Join(segs[:len(segs)-1], "/"))
	if parent == nil {
		return nil
	}

	last := segs[len(segs)-1]
	var out []*Element
	for _, c := range parent.el.ChildElements() {
		if parent.matches(c, last) {
			out = append(out, &Element{el: c, ns: e.ns})
		}
	}
	return out
}

// Lookup tries each path in order and returns the first non-empty, trimmed
// text. When none resolves it returns a *NotFoundError.
func (e *Element) Lookup(paths ...string) (string, error) {
	for _, p := range paths {
		if v := strings.TrimSpace(e.raw(p)); v != "" {
			return v, nil
		}
	}
	return "", &NotFoundError{Paths: paths}
}

// Value resolves a single path and applies opts. It never fails.
func (e *Element) Value(path string, opts ...Option) string {
	return e.First([]string{path}, opts...)
}

// First resolves a fallback chain of paths and applies opts. It never fails.
func (e *Element) First(paths []string, opts ...Option) string {
	v, err := e.Lookup(paths...)
	if err != nil {
		return ""
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.unit != "" {
		v = v + " " + o.unit
	}
	return v
}

// raw returns the untrimmed text or attribute value at path.
func (e *Element) raw(path string) string {
	if e == nil {
		return ""
	}

	segs := splitPath(path)
	if n := len(segs); n > 0 && strings.HasPrefix(segs[n-1], "@") {
		owner := e.Find(strings.Join(segs[:n-1], "/"))
		if owner == nil {
			return ""
		}
		return owner.el.SelectAttrValue(segs[n-1][1:], "")
	}

	target := e.Find(path)
	if target == nil {
		return ""
	}
	return target.el.Text()
}

func (e *Element) child(tag string) *Element {
	for _, c := range e.el.ChildElements() {
		if e.matches(c, tag) {
			return &Element{el: c, ns: e.ns}
		}
	}
	return nil
}

// descendant finds the first element named tag anywhere below e.
func (e *Element) descendant(tag string) *Element {
	if e == nil {
		return nil
	}
	for _, c := range e.el.ChildElements() {
		if e.matches(c, tag) {
			return &Element{el: c, ns: e.ns}
		}
		if found := (&Element{el: c, ns: e.ns}).descendant(tag); found != nil {
			return found
		}
	}
	return nil
}

func (e *Element) is(tag string) bool {
	return e != nil && e.matches(e.el, tag)
}

func (e *Element) matches(c *etree.Element, tag string) bool {
	return c.Tag == tag && c.NamespaceURI() == e.ns
}

func splitPath(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// =============================================================================
// OPTIONS
// =============================================================================

// Option adjusts how Value and First render the resolved text.
type Option func(*options)

type options struct {
	unit string
}

// WithUnit appends a literal unit ("kg") separated by a space. Nothing is
// appended to an empty value.
func WithUnit(unit string) Option {
	return func(o *options) { o.unit = unit }
}

// Children returns the element children of e in the document namespace.
func (e *Element) Children() []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, c := range e.el.ChildElements() {
		if c.NamespaceURI() == e.ns {
			out = append(out, &Element{el: c, ns: e.ns})
		}
	}
	return out
}
