// Package httpfetcher retrieves avatar bytes from the Discord CDN.
//
// The CDN serves accurate Content-Type headers, so the declared type is
// trusted over byte sniffing. The same asset requested with a different
// file extension yields different bytes: a .png request of a GIF-backed
// avatar returns a static-frame re-encode. The fetcher therefore rewrites
// animated and lossy extensions to .png before fetching so compositing
// always starts from a static frame.
package httpfetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/pepemanager/imageapi"
)

var staticVariantExts = map[string]string{
	".gif":  ".png",
	".jpg":  ".png",
	".jpeg": ".png",
	".webp": ".png",
}

// HTTPFetcher implements imageapi.Fetcher via outbound HTTP GET
type HTTPFetcher struct {
	// The Transport used to request images.
	// If nil, http.DefaultTransport is used.
	Transport http.RoundTripper

	// AllowedHosts list of host names allowed to fetch from,
	// supports glob patterns such as *.discordapp.com
	AllowedHosts []string

	// MaxAllowedSize maximum response body size in bytes
	MaxAllowedSize int

	// Timeout bounds a single outbound fetch. Zero means the request
	// context deadline alone applies.
	Timeout time.Duration

	// UserAgent sent on outbound requests
	UserAgent string

	// DisableStaticVariant skips the extension rewrite quirk
	DisableStaticVariant bool
}

// New creates HTTPFetcher with functional options
func New(options ...Option) *HTTPFetcher {
	h := &HTTPFetcher{
		UserAgent: "imageapi/" + imageapi.Version,
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// Fetch implements imageapi.Fetcher. A single failed fetch fails the whole
// request; there are no retries.
func (h *HTTPFetcher) Fetch(r *http.Request, image string) (*imageapi.Blob, error) {
	u, err := url.Parse(image)
	if err != nil || u.Host == "" || u.Scheme == "" {
		return nil, imageapi.ErrInvalid
	}
	if !h.isHostAllowed(u) {
		return nil, imageapi.ErrSourceNotAllowed
	}
	if !h.DisableStaticVariant {
		u = staticVariant(u)
	}
	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, imageapi.ErrInvalid
	}
	req.Header.Set("User-Agent", h.UserAgent)
	client := &http.Client{Transport: h.Transport}
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, imageapi.ErrUnreachable
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, imageapi.NewUpstreamStatusError(resp.StatusCode)
	}
	body := io.Reader(resp.Body)
	if h.MaxAllowedSize > 0 {
		body = io.LimitReader(resp.Body, int64(h.MaxAllowedSize)+1)
	}
	buf, err := io.ReadAll(body)
	if err != nil {
		return nil, imageapi.ErrUnreachable
	}
	if h.MaxAllowedSize > 0 && len(buf) > h.MaxAllowedSize {
		return nil, imageapi.ErrPayloadTooLarge
	}
	return imageapi.NewBlob(buf, parseContentType(resp.Header.Get("Content-Type"))), nil
}

func (h *HTTPFetcher) isHostAllowed(u *url.URL) bool {
	if len(h.AllowedHosts) == 0 {
		return true
	}
	for _, host := range h.AllowedHosts {
		if matched, e := path.Match(host, u.Host); matched && e == nil {
			return true
		}
	}
	return false
}

// staticVariant rewrites the URL extension so the CDN returns a static
// re-encode of animated or lossy assets
func staticVariant(u *url.URL) *url.URL {
	ext := strings.ToLower(path.Ext(u.Path))
	target, ok := staticVariantExts[ext]
	if !ok {
		return u
	}
	rewritten := *u
	rewritten.Path = strings.TrimSuffix(u.Path, path.Ext(u.Path)) + target
	return &rewritten
}

func parseContentType(contentType string) string {
	idx := strings.Index(contentType, ";")
	if idx == -1 {
		idx = len(contentType)
	}
	return strings.TrimSpace(strings.ToLower(contentType[0:idx]))
}
