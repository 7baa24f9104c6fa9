package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompressor_ShrinksLargePosters(t *testing.T) {
	out, err := Compressor{MaxDimension: 1280, Quality: 75}.Compress(pngBytes(t, 2000, 1000))
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", out.ContentType)
	assert.Equal(t, ".jpg", out.Ext)
	assert.Equal(t, 1280, out.Width)
	assert.Equal(t, 640, out.Height)

	decoded, err := jpeg.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 1280, decoded.Bounds().Dx())
}

func TestCompressor_KeepsSmallPosters(t *testing.T) {
	out, err := Compressor{MaxDimension: 1280}.Compress(pngBytes(t, 300, 450))
	require.NoError(t, err)
	assert.Equal(t, 300, out.Width)
	assert.Equal(t, 450, out.Height)
}

func TestCompressor_RejectsGarbage(t *testing.T) {
	_, err := Compressor{}.Compress([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}
