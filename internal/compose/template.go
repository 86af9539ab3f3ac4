// =============================================================================
// NF-e to DANFE Converter - Template Compositor
// =============================================================================
//
// The DANFE template is plain HTML holding literal tokens such as
// [ds_company_issuer_name] or {ApproximateTax}. Composition is a literal
// replace of every token; there is no templating language and values are
// inserted unescaped.
//
// TEMPLATE LIFECYCLE:
//   1. LoadTemplate reads the file once per run.
//   2. Sections that are never printed (receipt stub, carrier summary) are
//      removed structurally, by tag + class, through the htmltree package.
//   3. The resulting *Template is immutable and shared by every file of the
//      batch.
//
// =============================================================================

package compose

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/htmltree"
)

// DefaultRemovedSections are never printed on the DANFE: the receipt
// acknowledgment stub and the carrier summary block.
var DefaultRemovedSections = []htmltree.Selector{
	{Tag: "table", Class: "canhoto"},
	{Tag: "table", Class: "transportador"},
}

// Template is a pruned DANFE template. It is read-only after construction.
type Template struct {
	text     string
	removed  int
	sections []string
}

// NewTemplate prunes the given sections from text.
//
// PARAMETERS:
//   - text: The template HTML.
//   - remove: Sections to delete. A nil slice uses DefaultRemovedSections;
//     an empty non-nil slice removes nothing.
func NewTemplate(text string, remove []htmltree.Selector) (*Template, error) {
	if remove == nil {
		remove = DefaultRemovedSections
	}

	root, err := htmltree.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	var sections []string
	for _, sel := range remove {
		if found := root.Find(sel); len(found) > 0 {
			sections = append(sections, fmt.Sprintf("%s x%d", sel, len(found)))
		}
	}

	n := root.Remove(remove...)
	return &Template{text: root.Render(), removed: n, sections: sections}, nil
}

// LoadTemplate reads and prunes a template file.
func LoadTemplate(path string, remove []htmltree.Selector) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	return NewTemplate(string(data), remove)
}

// Text returns the pruned template HTML.
func (t *Template) Text() string {
	return t.text
}

// Sections describes each selector that matched, as "tag.class xN".
func (t *Template) Sections() []string {
	return t.sections
}

// Removed returns how many sections were deleted at load time.
func (t *Template) Removed() int {
	return t.removed
}
