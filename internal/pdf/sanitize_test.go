package pdf

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStripsConfiguredDeclarations(t *testing.T) {
	src := `<html><head><style>.a{position:absolute;color:red}</style></head>` +
		`<body><div class="danfe-page" style="transform: rotate(3deg); color: blue">position: text</div></body></html>`

	out := DefaultSanitizer().Sanitize(src)

	assert.Contains(t, out, ".a{color:red}")
	assert.Contains(t, out, `style=" color: blue"`)
	assert.NotContains(t, out, "transform")
	assert.Contains(t, out, ">position: text</div>")
}

func TestSanitizeKeepsLonghandsOfOtherProperties(t *testing.T) {
	src := `<head><style>td{background-position: top; overflow-x: auto}</style></head>`

	out := DefaultSanitizer().Sanitize(src)

	assert.Contains(t, out, "background-position: top;")
	assert.Contains(t, out, "overflow-x: auto")
}

func TestSanitizeInjectsOverrideBeforeHead(t *testing.T) {
	out := DefaultSanitizer().Sanitize(`<html><head><title>x</title></head><body></body></html>`)

	override := "<style>.danfe-page, .items, .duplicates { visibility: visible !important; opacity: 1 !important; }</style>"
	assert.Contains(t, out, override+"</head>")
}

func TestSanitizeWithoutHead(t *testing.T) {
	out := Sanitizer{ForceVisible: []string{"items"}}.Sanitize(`<div class="items">x</div>`)

	assert.True(t, strings.HasPrefix(out, "<style>.items {"))
	assert.True(t, strings.HasSuffix(out, `<div class="items">x</div>`))
}

func TestEmptySanitizerIsIdentity(t *testing.T) {
	src := `<head><style>p{position:fixed}</style></head>`
	assert.Equal(t, src, Sanitizer{}.Sanitize(src))
}

func TestRenderErrorUnwraps(t *testing.T) {
	cause := errors.New("net::ERR_ABORTED")
	var err error = &RenderError{Err: cause}

	var re *RenderError
	assert.True(t, errors.As(err, &re))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "pdf render failed: net::ERR_ABORTED", err.Error())
}

func TestSanitizeStripsAdjacentDeclarations(t *testing.T) {
	src := `<html><head><style>.a{position:fixed;overflow:hidden;color:red}` +
		`.b { Position: relative ; transform: none }</style></head>` +
		`<body><div style="position:absolute;transform:rotate(90deg);color:red">x</div>` +
		`<p style='filter:none;box-shadow:none'>y</p></body></html>`

	out := DefaultSanitizer().Sanitize(src)

	assert.Contains(t, out, ".a{color:red}")
	assert.Contains(t, out, ".b {}")
	assert.Contains(t, out, `style="color:red"`)
	assert.Contains(t, out, `style=''`)
	assert.NotContains(t, out, "overflow")
	assert.NotContains(t, out, "transform")
	assert.NotContains(t, out, "absolute")
}

func TestSanitizeKeepsSelectorsWithColons(t *testing.T) {
	src := `<style>a:hover{position:absolute}@media print{td{color:black}}</style>`

	out := Sanitizer{StripProperties: []string{"position"}}.Sanitize(src)

	assert.Equal(t, `<style>a:hover{}@media print{td{color:black}}</style>`, out)
}

func TestSanitizeOverrideIgnoresNonASCIIBeforeHead(t *testing.T) {
	src := "<html><head><title>İK</title></head><body></body></html>"

	out := Sanitizer{ForceVisible: []string{"items"}}.Sanitize(src)

	assert.True(t, strings.HasPrefix(out, "<html><head><title>İK</title><style>.items {"))
	assert.True(t, strings.HasSuffix(out, "</style></head><body></body></html>"))
}
