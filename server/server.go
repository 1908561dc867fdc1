// Package server wraps the imageapi pipeline with HTTP routing, CORS,
// access logging and lifecycle handling.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/pepemanager/imageapi"
)

type Middleware func(http.Handler) http.Handler

// Server wraps the App with http.Server lifecycle handling
type Server struct {
	http.Server
	App             *imageapi.App
	Logger          *zap.Logger
	Debug           bool
	Address         string
	Port            int
	CertFile        string
	KeyFile         string
	PathPrefix      string
	AccessLog       bool
	CORS            bool
	ShutdownTimeout time.Duration

	middlewares []Middleware
}

// New creates a Server routing the App's registered template kinds
func New(app *imageapi.App, options ...Option) *Server {
	s := &Server{}
	s.App = app
	s.Port = 8000
	s.ReadTimeout = time.Second * 30
	s.MaxHeaderBytes = 1 << 20
	s.ShutdownTimeout = time.Second * 5
	s.Logger = zap.NewNop()

	for _, option := range options {
		option(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/", handleDefault).Methods(http.MethodGet)
	r.HandleFunc("/favicon.ico", handleFavicon).Methods(http.MethodGet)
	r.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/images/{kind}", s.imageHandler)
	// direct aliases per kind, e.g. /enter and /exit
	for _, kind := range app.Compositor.Kinds() {
		kind := kind
		r.HandleFunc("/"+kind, func(w http.ResponseWriter, req *http.Request) {
			app.Serve(w, req, kind)
		})
	}
	r.NotFoundHandler = http.HandlerFunc(handleNotFound)

	s.Handler = r
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		s.Handler = s.middlewares[i](s.Handler)
	}
	if s.CORS {
		s.Handler = cors.New(cors.Options{
			AllowOriginFunc: app.AllowsOrigin,
			AllowedMethods:  []string{http.MethodGet, http.MethodHead},
		}).Handler(s.Handler)
	}
	if s.AccessLog {
		s.Handler = s.accessLogHandler(s.Handler)
	}
	if s.PathPrefix != "" {
		s.Handler = http.StripPrefix(s.PathPrefix, s.Handler)
	}
	s.Handler = s.panicHandler(s.Handler)
	return s
}

func (s *Server) imageHandler(w http.ResponseWriter, r *http.Request) {
	s.App.Serve(w, r, mux.Vars(r)["kind"])
}

// Run starts the server until SIGINT or SIGTERM, then shuts down
// gracefully
func (s *Server) Run() {
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	s.RunContext(signalContext(done))
}

// RunContext starts the server until the context is cancelled
func (s *Server) RunContext(ctx context.Context) {
	s.Addr = s.Address + ":" + strconv.Itoa(s.Port)

	go func() {
		if err := s.listenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal("listen", zap.Error(err))
		}
	}()
	s.Logger.Info("server start", zap.String("address", s.Address), zap.Int("port", s.Port))
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		s.Logger.Error("server shutdown", zap.Error(err))
	}
	s.Logger.Info("exit")
}

func (s *Server) listenAndServe() error {
	if s.CertFile != "" && s.KeyFile != "" {
		return s.ListenAndServeTLS(s.CertFile, s.KeyFile)
	}
	return s.ListenAndServe()
}

func (s *Server) panicHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				s.Logger.Error("panic", zap.Error(err), zap.String("path", r.URL.Path))
				imageapi.ResError(w, imageapi.WrapError(err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLogHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.Logger.Info("access",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("ip", RealIP(r)),
			zap.Duration("took", time.Since(start)))
	})
}

func signalContext(done <-chan os.Signal) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-done
		cancel()
	}()
	return ctx
}
