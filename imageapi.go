package imageapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const Version = "1.2.0"

// Fetcher retrieves remote avatar bytes for an image URL
type Fetcher interface {
	Fetch(r *http.Request, image string) (*Blob, error)
}

// Decoder interprets fetched bytes into a pixel buffer
type Decoder interface {
	Decode(blob *Blob) (image.Image, error)
}

// Encoder serializes a composited pixel buffer into the given output format
type Encoder interface {
	Encode(img image.Image, format string) (*Blob, error)
}

// CompositeOptions per-request composite variations
type CompositeOptions struct {
	// Large selects the 1000px template scale instead of the 250px default
	Large bool
	// Flip mirrors the avatar horizontally before placement
	Flip bool
}

// Compositor places a decoded avatar onto the background template of an
// image kind. Kinds form an open set so new templates register without
// pipeline changes.
type Compositor interface {
	Kinds() []string
	Has(kind string) bool
	Composite(avatar image.Image, kind string, opts CompositeOptions) (image.Image, error)
}

// Metrics records per-stage pipeline outcomes
type Metrics interface {
	RecordStage(stage string, err error, elapsed time.Duration)
}

// ImageRequest describes one composite operation parsed from an inbound call
type ImageRequest struct {
	Kind   string
	Image  string
	Format string
	Large  bool
	Flip   bool
}

// pipeline stages, also the metrics label values
const (
	StageFetch     = "fetch"
	StageDecode    = "decode"
	StageComposite = "composite"
	StageEncode    = "encode"
)

// App avatar banner composite HTTP handler
type App struct {
	Fetcher        Fetcher
	Decoder        Decoder
	Encoder        Encoder
	Compositor     Compositor
	AllowedOrigins []string
	Development    bool
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Debug          bool
	Metrics        Metrics

	sema *semaphore.Weighted
}

// New creates an App with functional options
func New(options ...Option) *App {
	app := &App{
		Logger:         zap.NewNop(),
		RequestTimeout: time.Second * 30,
	}
	for _, option := range options {
		option(app)
	}
	return app
}

// AllowsOrigin reports whether a declared request origin passes the
// allow-list. Patterns match the origin host, e.g. "*.pepe-is.life".
// Only requests that carry an Origin header are subject to the check;
// see Serve.
func (app *App) AllowsOrigin(origin string) bool {
	if app.Development {
		return true
	}
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	for _, pattern := range app.AllowedOrigins {
		if matched, e := path.Match(pattern, u.Host); matched && e == nil {
			return true
		}
	}
	return false
}

// Serve runs the pipeline for an image kind and writes the HTTP response
func (app *App) Serve(w http.ResponseWriter, r *http.Request, kind string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		ResError(w, ErrMethodNotAllowed)
		return
	}
	start := time.Now()
	// requests without an Origin header are not CORS requests and pass
	// through; server-to-server callers never send one
	origin := r.Header.Get("Origin")
	if origin != "" && !app.AllowsOrigin(origin) {
		// rejected before any fetch occurs
		if app.Debug {
			app.Logger.Debug("origin-rejected", zap.String("origin", origin))
		}
		ResError(w, ErrOriginRejected)
		return
	}
	req, err := ParseRequest(r, kind)
	if err == nil && !app.Compositor.Has(req.Kind) {
		err = ErrNotFound
	}
	var blob *Blob
	if err == nil {
		blob, err = app.Do(r, req)
	}
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// connection dropped, abandon without writing
			return
		}
		e := WrapError(err)
		app.Logger.Warn("pipeline", zap.String("kind", kind), zap.String("image", req.Image), zap.Error(err))
		ResError(w, e)
		return
	}
	w.Header().Set("Content-Type", blob.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(blob.Size()))
	w.Header().Set("Time-Taken", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(blob.ReadAll())
	}
}

// ParseRequest extracts an ImageRequest from query parameters. The output
// format derives from the extension of the URL as originally requested,
// before the fetcher rewrites it for the CDN static variant.
func ParseRequest(r *http.Request, kind string) (ImageRequest, error) {
	req := ImageRequest{Kind: kind}
	req.Image = r.URL.Query().Get("image")
	if req.Image == "" {
		return req, ErrInvalid
	}
	u, err := url.Parse(req.Image)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return req, ErrInvalid
	}
	req.Format = formatFromExt(path.Ext(u.Path))
	req.Large, _ = strconv.ParseBool(r.URL.Query().Get("large"))
	req.Flip, _ = strconv.ParseBool(r.URL.Query().Get("flip"))
	return req, nil
}

// Do executes the fetch, decode, composite, encode pipeline
func (app *App) Do(r *http.Request, req ImageRequest) (blob *Blob, err error) {
	ctx := r.Context()
	if app.RequestTimeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, app.RequestTimeout)
		defer cancel()
		r = r.WithContext(ctx)
	}
	if app.sema != nil {
		if err = app.sema.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer app.sema.Release(1)
	}

	var raw *Blob
	if raw, err = app.stageFetch(r, req); err != nil {
		return nil, err
	}
	var avatar image.Image
	if avatar, err = app.stageDecode(raw); err != nil {
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	var out image.Image
	if out, err = app.stageComposite(avatar, req); err != nil {
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	return app.stageEncode(out, req)
}

func (app *App) stageFetch(r *http.Request, req ImageRequest) (*Blob, error) {
	start := time.Now()
	blob, err := app.Fetcher.Fetch(r, req.Image)
	app.record(StageFetch, err, start)
	if err != nil {
		return nil, err
	}
	if IsBlobEmpty(blob) {
		return nil, ErrUnreachable
	}
	if app.Debug {
		app.Logger.Debug("fetched",
			zap.String("image", req.Image),
			zap.String("content_type", blob.ContentType()),
			zap.Int("size", blob.Size()))
	}
	return blob, nil
}

func (app *App) stageDecode(blob *Blob) (image.Image, error) {
	start := time.Now()
	avatar, err := app.Decoder.Decode(blob)
	app.record(StageDecode, err, start)
	return avatar, err
}

func (app *App) stageComposite(avatar image.Image, req ImageRequest) (image.Image, error) {
	start := time.Now()
	out, err := app.Compositor.Composite(avatar, req.Kind, CompositeOptions{
		Large: req.Large,
		Flip:  req.Flip,
	})
	app.record(StageComposite, err, start)
	return out, err
}

func (app *App) stageEncode(out image.Image, req ImageRequest) (*Blob, error) {
	start := time.Now()
	blob, err := app.Encoder.Encode(out, req.Format)
	app.record(StageEncode, err, start)
	return blob, err
}

func (app *App) record(stage string, err error, start time.Time) {
	if app.Metrics != nil {
		app.Metrics.RecordStage(stage, err, time.Since(start))
	}
}

// formatFromExt maps a URL file extension to an output format name
func formatFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return ""
	}
}

// ResError writes an error JSON response with its status code
func ResError(w http.ResponseWriter, e Error) {
	buf, _ := json.Marshal(e)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	w.WriteHeader(e.Code)
	_, _ = w.Write(buf)
}

// ResJSON writes JSON response
func ResJSON(w http.ResponseWriter, v interface{}) {
	buf, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	_, _ = w.Write(buf)
}

// VersionBanner JSON payload for the base path
func VersionBanner() json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"imageapi":{"version":"%s"}}`, Version))
}
