// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/AustinWheel/diving-duck-sub000/internal/aggregate"
	"github.com/AustinWheel/diving-duck-sub000/internal/api/health"
	"github.com/AustinWheel/diving-duck-sub000/internal/events"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address            string
	JWTSecret          []byte        // dashboard token verification secret
	RateLimitPerIP     int           // unauthenticated requests per minute per IP
	RateLimitPerTenant int           // authenticated requests per minute per tenant
	RequestTimeout     time.Duration // bound for storage-backed handlers
	Verbose            bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 30
	}
	if c.RateLimitPerTenant == 0 {
		c.RateLimitPerTenant = 300
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 15 * time.Second
	}
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	storage       storage.Storage
	ingestion     *events.Service
	aggregator    *aggregate.Aggregator
	server        *http.Server
	healthHandler *health.Handler
}

// New creates a new API server.
func New(cfg *Config, store storage.Storage, ingestion *events.Service, aggregator *aggregate.Aggregator) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if ingestion == nil {
		return nil, fmt.Errorf("ingestion service is required")
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:        cfg,
		storage:       store,
		ingestion:     ingestion,
		aggregator:    aggregator,
		healthHandler: health.NewHandler(),
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}
