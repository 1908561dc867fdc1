package httpfetcher

import (
	"crypto/tls"
	"net/http"
	"strings"
	"time"
)

type Option func(h *HTTPFetcher)

func WithTransport(transport http.RoundTripper) Option {
	return func(h *HTTPFetcher) {
		if transport != nil {
			h.Transport = transport
		}
	}
}

func WithInsecureSkipVerifyTransport(enable bool) Option {
	return func(h *HTTPFetcher) {
		if enable {
			transport := http.DefaultTransport.(*http.Transport).Clone()
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
			h.Transport = transport
		}
	}
}

func WithAllowedHosts(hosts ...string) Option {
	return func(h *HTTPFetcher) {
		for _, raw := range hosts {
			for _, host := range strings.Split(raw, ",") {
				host = strings.TrimSpace(host)
				if len(host) > 0 {
					h.AllowedHosts = append(h.AllowedHosts, host)
				}
			}
		}
	}
}

func WithMaxAllowedSize(maxAllowedSize int) Option {
	return func(h *HTTPFetcher) {
		if maxAllowedSize > 0 {
			h.MaxAllowedSize = maxAllowedSize
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(h *HTTPFetcher) {
		if timeout > 0 {
			h.Timeout = timeout
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(h *HTTPFetcher) {
		if userAgent != "" {
			h.UserAgent = userAgent
		}
	}
}

func WithDisableStaticVariant(disable bool) Option {
	return func(h *HTTPFetcher) {
		h.DisableStaticVariant = disable
	}
}
