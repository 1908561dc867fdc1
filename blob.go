package imageapi

import (
	"bytes"
	"sync"
)

// Blob abstraction for fetched or encoded image bytes with a declared
// content type. The declared type comes from the upstream CDN header and
// takes precedence over sniffing; sniffed attributes are derived lazily
// from magic bytes for when the declared type is missing.
type Blob struct {
	buf         []byte
	contentType string

	once        sync.Once
	sniffedType string
}

var jpegHeader = []byte("\xFF\xD8\xFF")
var gifHeader = []byte("\x47\x49\x46")
var webpHeader = []byte("\x57\x45\x42\x50")
var pngHeader = []byte("\x89\x50\x4E\x47")

// NewBlob creates Blob from bytes and declared content type
func NewBlob(buf []byte, contentType string) *Blob {
	return &Blob{buf: buf, contentType: contentType}
}

// NewBlobFromBytes creates Blob from bytes with no declared content type
func NewBlobFromBytes(buf []byte) *Blob {
	return &Blob{buf: buf}
}

func (b *Blob) sniffOnce() {
	b.once.Do(func() {
		if len(b.buf) < 12 {
			return
		}
		if bytes.HasPrefix(b.buf, jpegHeader) {
			b.sniffedType = "image/jpeg"
		} else if bytes.HasPrefix(b.buf, pngHeader) {
			b.sniffedType = "image/png"
		} else if bytes.HasPrefix(b.buf, gifHeader) {
			b.sniffedType = "image/gif"
		} else if bytes.Equal(b.buf[8:12], webpHeader) {
			b.sniffedType = "image/webp"
		}
	})
}

// IsEmpty indicates Blob is empty
func (b *Blob) IsEmpty() bool {
	return b == nil || len(b.buf) == 0
}

// ContentType returns the declared content type, or the sniffed type when
// no type was declared
func (b *Blob) ContentType() string {
	if b.contentType != "" {
		return b.contentType
	}
	b.sniffOnce()
	return b.sniffedType
}

// SniffedType returns the content type derived from magic bytes only
func (b *Blob) SniffedType() string {
	b.sniffOnce()
	return b.sniffedType
}

// ReadAll returns the underlying bytes
func (b *Blob) ReadAll() []byte {
	return b.buf
}

// Size returns the byte length
func (b *Blob) Size() int {
	return len(b.buf)
}

// IsBlobEmpty indicates Blob is nil or empty
func IsBlobEmpty(b *Blob) bool {
	return b == nil || b.IsEmpty()
}
