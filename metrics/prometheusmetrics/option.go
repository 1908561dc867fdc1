package prometheusmetrics

import "go.uber.org/zap"

type Option func(s *Server)

func WithHost(host string) Option {
	return func(s *Server) {
		s.Host = host
	}
}

func WithPort(port int) Option {
	return func(s *Server) {
		s.Port = port
	}
}

func WithPath(path string) Option {
	return func(s *Server) {
		if path != "" {
			s.Path = path
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}
