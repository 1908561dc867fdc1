package server

import (
	"time"

	"go.uber.org/zap"
)

type Option func(s *Server)

func WithAddress(address string) Option {
	return func(s *Server) {
		s.Address = address
	}
}

func WithPort(port int) Option {
	return func(s *Server) {
		s.Port = port
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

func WithDebug(debug bool) Option {
	return func(s *Server) {
		s.Debug = debug
	}
}

func WithMiddleware(middleware Middleware) Option {
	return func(s *Server) {
		s.middlewares = append(s.middlewares, middleware)
	}
}

func WithCORS(enabled bool) Option {
	return func(s *Server) {
		s.CORS = enabled
	}
}

func WithAccessLog(enabled bool) Option {
	return func(s *Server) {
		s.AccessLog = enabled
	}
}

func WithPathPrefix(prefix string) Option {
	return func(s *Server) {
		s.PathPrefix = prefix
	}
}

func WithTLS(certFile, keyFile string) Option {
	return func(s *Server) {
		s.CertFile = certFile
		s.KeyFile = keyFile
	}
}

func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.ShutdownTimeout = timeout
		}
	}
}
