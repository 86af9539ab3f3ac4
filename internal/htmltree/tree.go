// =============================================================================
// NF-e to DANFE Converter - Lightweight HTML Tree
// =============================================================================
//
// This package parses a template into a shallow element tree built from the
// x/net/html tokenizer, removes elements by structural signature, and writes
// the template back out.
//
// TOKEN PRESERVATION:
//   Stray text inside <table>/<tbody> (tokens such as [items]) stays where it
//   is, unlike html.Parse which moves it out of the table. Everything that is
//   not removed renders back byte for byte.
//
// =============================================================================

package htmltree

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// voidElements never have children or an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Node is an element or a raw token (text, comment, doctype).
type Node struct {
	// Tag is the lower-case element name, or "" for non-element tokens.
	Tag string

	// Classes holds the tokens of the class attribute.
	Classes []string

	Children []*Node

	open   string // start tag bytes, or the whole token for leaves
	close  string // end tag bytes; "" when implicit
	parent *Node
}

// Selector matches elements by tag name and class token.
type Selector struct {
	Tag   string `yaml:"tag"`
	Class string `yaml:"class"`
}

// String renders the selector as "tag.class".
func (s Selector) String() string {
	return s.Tag + "." + s.Class
}

// Matches reports whether n carries the selector's tag and class. An empty
// Tag matches any element; a selector with both fields empty matches nothing.
func (s Selector) Matches(n *Node) bool {
	if n.Tag == "" {
		return false
	}
	if s.Tag != "" && !strings.EqualFold(s.Tag, n.Tag) {
		return false
	}
	if s.Class == "" {
		return s.Tag != ""
	}
	return n.HasClass(s.Class)
}

// HasClass reports whether class is one of the element's class tokens.
func (n *Node) HasClass(class string) bool {
	for _, c := range n.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// =============================================================================
// PARSE / RENDER
// =============================================================================

// Parse builds the tree of src. The returned root has Tag "".
func Parse(src string) (*Node, error) {
	root := &Node{}
	cur := root

	z := html.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				return root, nil
			}
			return nil, fmt.Errorf("failed to tokenize template: %w", z.Err())
		}

		raw := string(z.Raw())

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			n := &Node{open: raw, parent: cur}
			n.Tag, n.Classes = tagInfo(z)
			cur.Children = append(cur.Children, n)
			if tt == html.StartTagToken && !voidElements[n.Tag] {
				cur = n
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if open := cur.ancestor(string(name)); open != nil {
				open.close = raw
				cur = open.parent
				continue
			}
			// Stray end tag; keep it as text.
			cur.Children = append(cur.Children, &Node{open: raw, parent: cur})

		default:
			cur.Children = append(cur.Children, &Node{open: raw, parent: cur})
		}
	}
}

// tagInfo reads the lower-case name and class tokens of the current tag.
func tagInfo(z *html.Tokenizer) (string, []string) {
	name, hasAttr := z.TagName()
	tag := string(name)

	var classes []string
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if string(key) == "class" {
			classes = strings.Fields(string(val))
		}
	}
	return tag, classes
}

// ancestor returns the nearest open element named tag, starting at n.
func (n *Node) ancestor(tag string) *Node {
	for p := n; p != nil && p.Tag != ""; p = p.parent {
		if p.Tag == tag {
			return p
		}
	}
	return nil
}

// Render writes the tree back as HTML.
func (n *Node) Render() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	b.WriteString(n.open)
	for _, c := range n.Children {
		c.render(b)
	}
	b.WriteString(n.close)
}

// =============================================================================
// EDITING
// =============================================================================

// Remove deletes every element matched by any selector, including its
// subtree. It returns the number of elements removed.
func (n *Node) Remove(selectors ...Selector) int {
	removed := 0
	kept := n.Children[:0]
	for _, c := range n.Children {
		if matchesAny(c, selectors) {
			removed++
			continue
		}
		removed += c.Remove(selectors...)
		kept = append(kept, c)
	}
	n.Children = kept
	return removed
}

// Find returns matched elements in document order.
func (n *Node) Find(sel Selector) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if sel.Matches(c) {
			out = append(out, c)
		}
		out = append(out, c.Find(sel)...)
	}
	return out
}

// LastEndTag returns the byte offset in doc of the last "</tag>", matching
// the tag name case-insensitively in ASCII only, or -1.
func LastEndTag(doc, tag string) int {
	needle := "</" + tag + ">"
	for i := len(doc) - len(needle); i >= 0; i-- {
		if equalFoldASCII(doc[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func equalFoldASCII(a, b string) bool {
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func matchesAny(n *Node, selectors []Selector) bool {
	for _, s := range selectors {
		if s.Matches(n) {
			return true
		}
	}
	return false
}
