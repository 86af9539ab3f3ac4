// Package barcode draws the Code 128 barcode of an NF-e access key as PNG.
package barcode

import (
	"bytes"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
)

// Encoder renders Code 128 barcodes. The zero value uses two pixels per
// module and a height of 60 pixels.
type Encoder struct {
	// ModuleWidth is the width in pixels of the narrowest bar.
	ModuleWidth int

	// Height is the image height in pixels.
	Height int
}

// Encode returns the PNG of data, or nil when data cannot be encoded.
func (e Encoder) Encode(data string) []byte {
	if data == "" {
		return nil
	}

	module, height := e.ModuleWidth, e.Height
	if module <= 0 {
		module = 2
	}
	if height <= 0 {
		height = 60
	}

	code, err := code128.Encode(data)
	if err != nil {
		return nil
	}

	scaled, err := barcode.Scale(code, code.Bounds().Dx()*module, height)
	if err != nil {
		return nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil
	}
	return buf.Bytes()
}
