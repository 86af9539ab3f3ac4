package barcode

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAccessKey(t *testing.T) {
	out := Encoder{}.Encode("35250512345678000195550010000012341000012345")
	require.NotEmpty(t, out)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 60, img.Bounds().Dy())
	assert.Greater(t, img.Bounds().Dx(), 44)
}

func TestEncodeFailuresAreSilent(t *testing.T) {
	assert.Nil(t, Encoder{}.Encode(""))
}
