package codec

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/pepemanager/imageapi"
)

// Encoder implements imageapi.Encoder. PNG is the default output; a
// request that named jpeg or gif in its URL extension gets that format
// instead. WEBP output has no pure Go encoder and falls back to PNG.
type Encoder struct {
	// JPEGQuality for jpeg output, 1-100
	JPEGQuality int
}

// NewEncoder creates an Encoder with default quality settings
func NewEncoder() *Encoder {
	return &Encoder{JPEGQuality: 95}
}

// Encode implements imageapi.Encoder
func (e *Encoder) Encode(img image.Image, format string) (*imageapi.Blob, error) {
	if img == nil {
		return nil, imageapi.ErrEncode
	}
	var buf bytes.Buffer
	var contentType string
	var err error
	switch format {
	case FormatJPEG:
		contentType = "image/jpeg"
		quality := e.JPEGQuality
		if quality <= 0 {
			quality = 95
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	case FormatGIF:
		contentType = "image/gif"
		err = gif.Encode(&buf, img, nil)
	default:
		contentType = "image/png"
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, imageapi.ErrEncode
	}
	return imageapi.NewBlob(buf.Bytes(), contentType), nil
}
