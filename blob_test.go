package imageapi

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestImage(t *testing.T, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	require.NoError(t, encode(&buf, img))
	return buf.Bytes()
}

func TestBlobSniffing(t *testing.T) {
	pngBytes := encodeTestImage(t, func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	})
	jpegBytes := encodeTestImage(t, func(buf *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(buf, img, nil)
	})

	tests := []struct {
		name        string
		blob        *Blob
		contentType string
		sniffed     string
	}{
		{"png declared", NewBlob(pngBytes, "image/png"), "image/png", "image/png"},
		{"png sniffed", NewBlobFromBytes(pngBytes), "image/png", "image/png"},
		{"jpeg sniffed", NewBlobFromBytes(jpegBytes), "image/jpeg", "image/jpeg"},
		{"gif sniffed", NewBlobFromBytes(append([]byte("GIF89a"), make([]byte, 16)...)), "image/gif", "image/gif"},
		{"webp sniffed", NewBlobFromBytes([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")), "image/webp", "image/webp"},
		{"declared wins", NewBlob(pngBytes, "image/gif"), "image/gif", "image/png"},
		{"unknown", NewBlobFromBytes([]byte("certainly not an image")), "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.contentType, tt.blob.ContentType())
			assert.Equal(t, tt.sniffed, tt.blob.SniffedType())
		})
	}
}

func TestBlobEmpty(t *testing.T) {
	assert.True(t, IsBlobEmpty(nil))
	assert.True(t, IsBlobEmpty(NewBlobFromBytes(nil)))
	assert.True(t, IsBlobEmpty(NewBlobFromBytes([]byte{})))
	assert.False(t, IsBlobEmpty(NewBlobFromBytes([]byte("x"))))
	assert.Equal(t, 1, NewBlobFromBytes([]byte("x")).Size())
}
