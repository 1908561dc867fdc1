package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pepemanager/imageapi"
	"github.com/pepemanager/imageapi/codec"
	"github.com/pepemanager/imageapi/compose"
)

type fetcherFunc func(r *http.Request, image string) (*imageapi.Blob, error)

func (f fetcherFunc) Fetch(r *http.Request, image string) (*imageapi.Blob, error) {
	return f(r, image)
}

func avatarBlob(t *testing.T) *imageapi.Blob {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = 0xaa
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return imageapi.NewBlob(buf.Bytes(), "image/png")
}

func testRegistry() *compose.Registry {
	g := compose.NewRegistry()
	backgrounds := map[int]image.Image{}
	for _, scale := range []int{compose.ScaleSmall, compose.ScaleLarge} {
		bg := image.NewNRGBA(image.Rect(0, 0, scale, scale))
		for y := 0; y < scale; y++ {
			for x := 0; x < scale; x++ {
				bg.SetNRGBA(x, y, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff})
			}
		}
		backgrounds[scale] = bg
	}
	g.Register(compose.NewTemplate("enter", backgrounds))
	g.Register(compose.NewTemplate("exit", backgrounds))
	return g
}

func testApp(t *testing.T, options ...imageapi.Option) *imageapi.App {
	t.Helper()
	blob := avatarBlob(t)
	return imageapi.New(append([]imageapi.Option{
		imageapi.WithFetcher(fetcherFunc(func(r *http.Request, image string) (*imageapi.Blob, error) {
			return blob, nil
		})),
		imageapi.WithDecoder(codec.NewDecoder()),
		imageapi.WithEncoder(codec.NewEncoder()),
		imageapi.WithCompositor(testRegistry()),
		imageapi.WithAllowedOrigins("allowed.example"),
	}, options...)...)
}

func TestServerRoutes(t *testing.T) {
	s := New(testApp(t))

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"version banner", "/", http.StatusOK},
		{"favicon", "/favicon.ico", http.StatusOK},
		{"health", "/health", http.StatusOK},
		{"kind alias", "/enter?image=https%3A%2F%2Fcdn.discordapp.com%2Fa.png", http.StatusOK},
		{"images route", "/images/exit?image=https%3A%2F%2Fcdn.discordapp.com%2Fa.png", http.StatusOK},
		{"unknown kind", "/images/dance?image=https%3A%2F%2Fcdn.discordapp.com%2Fa.png", http.StatusNotFound},
		{"unknown path", "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			r.Header.Set("Origin", "https://allowed.example")
			s.Handler.ServeHTTP(w, r)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestServerHealth(t *testing.T) {
	s := New(testApp(t))
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "uptime")
	assert.Contains(t, w.Body.String(), "goroutines")
}

func TestServerMiddleware(t *testing.T) {
	s := New(testApp(t),
		WithMiddleware(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Foo", "Bar")
				next.ServeHTTP(w, r)
			})
		}),
	)
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bar", w.Header().Get("X-Foo"))
}

func TestServerPathPrefix(t *testing.T) {
	s := New(testApp(t), WithPathPrefix("/api"))
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerCORS(t *testing.T) {
	s := New(testApp(t), WithCORS(true))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/enter", nil)
	r.Header.Set("Origin", "https://allowed.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)
	s.Handler.ServeHTTP(w, r)
	assert.Equal(t, "https://allowed.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodOptions, "/enter", nil)
	r.Header.Set("Origin", "https://evil.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)
	s.Handler.ServeHTTP(w, r)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPanicHandler(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := New(testApp(t), WithLogger(zap.New(core)))

	for _, cause := range []interface{}{assert.AnError, "string panic"} {
		cause := cause
		logs.TakeAll()
		handler := s.panicHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(cause)
		}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "panic", entries[0].Message)
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := New(testApp(t), WithAccessLog(true), WithLogger(zap.New(core)))

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var found bool
	for _, entry := range logs.All() {
		if entry.Message == "access" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:1234"
	assert.Equal(t, "203.0.113.5", RealIP(r))

	r.Header.Set("X-Forwarded-For", "10.0.0.1, 198.51.100.7")
	assert.Equal(t, "198.51.100.7", RealIP(r))

	r.Header.Del("X-Forwarded-For")
	r.Header.Set("X-Real-Ip", "198.51.100.9")
	assert.Equal(t, "198.51.100.9", RealIP(r))
}
