package pdf

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/htmltree"
)

// =============================================================================
// SANITIZED SECOND PASS
// =============================================================================

// Sanitizer builds the reduced HTML variant used when the first render fails.
// Declarations of StripProperties are removed from <style> blocks and style
// attributes, and elements carrying a ForceVisible class are forced visible.
type Sanitizer struct {
	StripProperties []string `yaml:"strip_properties"`
	ForceVisible    []string `yaml:"force_visible"`
}

// DefaultSanitizer returns the property and class sets used when none are
// configured.
func DefaultSanitizer() Sanitizer {
	return Sanitizer{
		StripProperties: []string{"position", "transform", "filter", "box-shadow", "text-shadow", "overflow"},
		ForceVisible:    []string{"danfe-page", "items", "duplicates"},
	}
}

var (
	styleBlock = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	styleAttr  = regexp.MustCompile(`(?i)\bstyle\s*=\s*("[^"]*"|'[^']*')`)
)

// Sanitize returns html with the configured declarations removed and the
// visibility override injected. Text content outside styles is untouched.
func (s Sanitizer) Sanitize(html string) string {
	out := html

	if props := s.stripSet(); len(props) > 0 {
		out = styleBlock.ReplaceAllStringFunc(out, func(m string) string {
			start := strings.IndexByte(m, '>') + 1
			end := strings.LastIndexByte(m, '<')
			return m[:start] + stripDeclarations(m[start:end], props) + m[end:]
		})
		out = styleAttr.ReplaceAllStringFunc(out, func(m string) string {
			q := strings.IndexAny(m, `"'`)
			return m[:q+1] + stripDeclarations(m[q+1:len(m)-1], props) + m[len(m)-1:]
		})
	}

	override := s.override()
	if override == "" {
		return out
	}
	if idx := htmltree.LastEndTag(out, "head"); idx >= 0 {
		return out[:idx] + override + out[idx:]
	}
	return override + out
}

func (s Sanitizer) stripSet() map[string]bool {
	props := make(map[string]bool, len(s.StripProperties))
	for _, p := range s.StripProperties {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			props[p] = true
		}
	}
	return props
}

// stripDeclarations drops every "prop: value" whose property is in props.
// css is split at ";", "{" and "}"; a segment followed by "{" is a selector
// and is kept. Everything that is not dropped is kept byte for byte.
func stripDeclarations(css string, props map[string]bool) string {
	var b strings.Builder
	b.Grow(len(css))

	for len(css) > 0 {
		end := strings.IndexAny(css, ";{}")
		segment, delim, rest := css, "", ""
		if end >= 0 {
			segment, delim, rest = css[:end], css[end:end+1], css[end+1:]
		}

		if delim != "{" && props[declarationProperty(segment)] {
			// The declaration goes with its own ";". A closing brace stays.
			if delim == "}" {
				b.WriteString(delim)
			}
		} else {
			b.WriteString(segment)
			b.WriteString(delim)
		}
		css = rest
	}
	return b.String()
}

// declarationProperty returns the lower-case property name of "prop: value",
// or "" when segment is not a declaration.
func declarationProperty(segment string) string {
	i := strings.IndexByte(segment, ':')
	if i < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(segment[:i]))
}

func (s Sanitizer) override() string {
	selectors := make([]string, 0, len(s.ForceVisible))
	for _, c := range s.ForceVisible {
		if c = strings.TrimSpace(c); c != "" {
			selectors = append(selectors, "."+c)
		}
	}
	if len(selectors) == 0 {
		return ""
	}
	return "<style>" + strings.Join(selectors, ", ") +
		" { visibility: visible !important; opacity: 1 !important; }</style>"
}
