package media

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Compressor re-encodes posters as JPEG, shrinking them to fit within
// MaxDimension on both axes.  Smaller images are never upscaled.
type Compressor struct {
	MaxDimension int
	Quality      int
}

// Compressed is the encoded output of a Compressor.
type Compressed struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// Compress decodes data, honouring EXIF orientation, and encodes the result.
func (c Compressor) Compress(data []byte) (Compressed, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Compressed{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if limit := c.MaxDimension; limit > 0 {
		b := img.Bounds()
		if b.Dx() > limit || b.Dy() > limit {
			img = imaging.Fit(img, limit, limit, imaging.Lanczos)
		}
	}
	quality := c.Quality
	if quality < 1 || quality > 100 {
		quality = 80
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return Compressed{}, fmt.Errorf("media: encode poster: %w", err)
	}
	b := img.Bounds()
	return Compressed{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Ext:         ".jpg",
		Width:       b.Dx(),
		Height:      b.Dy(),
	}, nil
}
