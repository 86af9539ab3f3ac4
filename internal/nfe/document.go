// =============================================================================
// NF-e to DANFE Converter - NF-e Document
// =============================================================================
//
// This package wraps a parsed NF-e XML tree and exposes a small, path based
// field accessor used by the extractor.
//
// DOCUMENT SHAPES:
//   An authorized invoice is usually distributed as <nfeProc> holding <NFe>
//   and <protNFe>. Unauthorized or in-transit files carry <NFe> as the root.
//   Both shapes are accepted.
//
// NAMESPACES:
//   Path segments are tag names without prefixes. They are matched against
//   elements in the NF-e namespace (or against unqualified elements when the
//   whole document was written without a namespace).
//
// =============================================================================

package nfe

import (
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"
)

// Namespace is the XML namespace of every NF-e element.
const Namespace = "http://www.portalfiscal.inf.br/nfe"

// Document is a parsed invoice file. It is never mutated after Parse.
type Document struct {
	ns   string
	proc *Element
	nfe  *Element
}

// Parse reads an NF-e XML document from r.
//
// PARAMETERS:
//   - r: UTF-8 encoded XML.
//
// RETURNS:
//   - The parsed document. A well formed XML that is not an invoice still
//     parses; the extractor reports it as malformed.
//   - An error if the input is not well formed XML.
func Parse(r io.Reader) (*Document, error) {
	tree := etree.NewDocument()
	if _, err := tree.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to parse xml: %w", err)
	}

	root := tree.Root()
	if root == nil {
		return nil, fmt.Errorf("failed to parse xml: document has no root element")
	}

	ns := Namespace
	if root.NamespaceURI() == "" {
		ns = ""
	}

	doc := &Document{ns: ns}
	top := &Element{el: root, ns: ns}

	switch {
	case top.is("nfeProc"):
		doc.proc = top
		doc.nfe = top.Find("NFe")
	case top.is("NFe"):
		doc.nfe = top
	default:
		// Some exporters wrap the invoice in a batch envelope.
		doc.nfe = top.descendant("NFe")
	}

	return doc, nil
}

// ParseFile opens path and parses it.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xml: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// NFe returns the <NFe> element, or nil.
func (d *Document) NFe() *Element {
	if d == nil {
		return nil
	}
	return d.nfe
}

// InvoiceInfo returns the mandatory <infNFe> element, or nil when absent.
func (d *Document) InvoiceInfo() *Element {
	return d.NFe().Find("infNFe")
}

// Protocol returns <protNFe>/<infProt>, or nil for unauthorized files.
func (d *Document) Protocol() *Element {
	if d == nil {
		return nil
	}
	return d.proc.Find("protNFe/infProt")
}
