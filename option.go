package imageapi

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

type Option func(app *App)

func WithFetcher(fetcher Fetcher) Option {
	return func(app *App) {
		app.Fetcher = fetcher
	}
}

func WithDecoder(decoder Decoder) Option {
	return func(app *App) {
		app.Decoder = decoder
	}
}

func WithEncoder(encoder Encoder) Option {
	return func(app *App) {
		app.Encoder = encoder
	}
}

func WithCompositor(compositor Compositor) Option {
	return func(app *App) {
		app.Compositor = compositor
	}
}

// WithAllowedOrigins sets the origin allow-list, matched as glob patterns
// against the Origin header host
func WithAllowedOrigins(origins ...string) Option {
	return func(app *App) {
		app.AllowedOrigins = append(app.AllowedOrigins, origins...)
	}
}

// WithDevelopment disables the origin allow-list for local development
func WithDevelopment(development bool) Option {
	return func(app *App) {
		app.Development = development
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(app *App) {
		if timeout > 0 {
			app.RequestTimeout = timeout
		}
	}
}

// WithProcessConcurrency caps concurrent in-flight pipelines. Set -1 for
// no limit
func WithProcessConcurrency(n int64) Option {
	return func(app *App) {
		if n > 0 {
			app.sema = semaphore.NewWeighted(n)
		}
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(app *App) {
		app.Metrics = metrics
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(app *App) {
		if logger != nil {
			app.Logger = logger
		}
	}
}

func WithDebug(debug bool) Option {
	return func(app *App) {
		app.Debug = debug
	}
}
