package server

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sig-0/btcrates/provider"
	"github.com/sig-0/btcrates/server/config"
)

type Option func(s *Server)

// WithLogger specifies the logger for the server
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithConfig specifies the config for the server
func WithConfig(c *config.Config) Option {
	return func(s *Server) {
		s.config = c
	}
}

// WithProvider specifies the live rate provider.
// The quote endpoint is only served if a provider is set
func WithProvider(p provider.RateProvider) Option {
	return func(s *Server) {
		s.provider = p
	}
}

// WithGatherer specifies the metrics source for the /metrics endpoint.
// The endpoint is only served if a gatherer is set
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}
