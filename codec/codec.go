// Package codec decodes fetched avatar bytes into pixel buffers and
// encodes composited buffers back into transmittable formats.
package codec

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/webp"

	"github.com/pepemanager/imageapi"
)

// Format names as used across decode and encode
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatGIF  = "gif"
	FormatWEBP = "webp"
)

// FormatPolicy decides the decode format from the declared content type
// and the raw bytes
type FormatPolicy func(contentType string, buf []byte) string

// TrustDeclared trusts the declared content type and falls back to magic
// byte sniffing only when the type is missing or not an image type. This
// is the default for the Discord CDN, whose headers are accurate.
func TrustDeclared(contentType string, buf []byte) string {
	if f := formatFromContentType(contentType); f != "" {
		return f
	}
	return SniffOnly("", buf)
}

// SniffOnly ignores the declared content type and determines the format
// from magic bytes alone
func SniffOnly(_ string, buf []byte) string {
	return formatFromContentType(imageapi.NewBlobFromBytes(buf).SniffedType())
}

func formatFromContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return FormatPNG
	case "image/jpeg", "image/jpg":
		return FormatJPEG
	case "image/gif":
		return FormatGIF
	case "image/webp":
		return FormatWEBP
	default:
		return ""
	}
}

// Decoder implements imageapi.Decoder for PNG, JPEG, GIF and WEBP.
// Animated GIF and WEBP decode their first frame only.
type Decoder struct {
	// Policy decides the decode format; TrustDeclared if nil
	Policy FormatPolicy

	// MaxResolution rejects images above this pixel count before full
	// decode, guarding against decompression bombs. Zero disables the
	// guard.
	MaxResolution int
}

// NewDecoder creates a Decoder with the default format policy
func NewDecoder() *Decoder {
	return &Decoder{
		Policy:        TrustDeclared,
		MaxResolution: 4096 * 4096,
	}
}

// Decode implements imageapi.Decoder
func (d *Decoder) Decode(blob *imageapi.Blob) (image.Image, error) {
	if imageapi.IsBlobEmpty(blob) {
		return nil, imageapi.ErrCorruptData
	}
	policy := d.Policy
	if policy == nil {
		policy = TrustDeclared
	}
	buf := blob.ReadAll()
	format := policy(blob.ContentType(), buf)
	if format == "" {
		return nil, imageapi.ErrUnsupportedFormat
	}
	if d.MaxResolution > 0 {
		cfg, err := decodeConfig(format, buf)
		if err != nil {
			return nil, imageapi.ErrCorruptData
		}
		if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > d.MaxResolution {
			return nil, imageapi.ErrResolutionExceeded
		}
	}
	img, err := decode(format, buf)
	if err != nil {
		return nil, imageapi.ErrCorruptData
	}
	return img, nil
}

func decodeConfig(format string, buf []byte) (image.Config, error) {
	r := bytes.NewReader(buf)
	switch format {
	case FormatPNG:
		return png.DecodeConfig(r)
	case FormatJPEG:
		return jpeg.DecodeConfig(r)
	case FormatGIF:
		return gif.DecodeConfig(r)
	case FormatWEBP:
		return webp.DecodeConfig(r)
	}
	return image.Config{}, imageapi.ErrUnsupportedFormat
}

func decode(format string, buf []byte) (image.Image, error) {
	r := bytes.NewReader(buf)
	switch format {
	case FormatPNG:
		return png.Decode(r)
	case FormatJPEG:
		return jpeg.Decode(r)
	case FormatGIF:
		// first frame only
		return gif.Decode(r)
	case FormatWEBP:
		return webp.Decode(r)
	}
	return nil, imageapi.ErrUnsupportedFormat
}
