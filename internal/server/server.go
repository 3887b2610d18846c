// Package server exposes the reconciliation engine over HTTP. The surface is
// deliberately small: one upload endpoint that returns proposals, plus a
// health check. Confirming a proposal into a payment is a separate system.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"remittance-reconciliation-service/internal/reconciler"
	"remittance-reconciliation-service/pkg/logger"
)

// Config holds HTTP server settings.
type Config struct {
	ListenAddr string
	// APIKey enables authentication when non-empty; requests must carry it
	// in the X-API-Key header.
	APIKey string
	// DefaultAccountID is the acting account when the X-Account-ID header
	// is absent.
	DefaultAccountID string
	AllowOrigins     []string
	// RequestsPerSecond and Burst configure upload rate limiting.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns the standard server configuration.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:        ":8080",
		DefaultAccountID:  "default",
		AllowOrigins:      []string{"http://localhost:3000"},
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive")
	}
	if c.Burst <= 0 {
		return fmt.Errorf("burst must be positive")
	}
	return nil
}

// Server wires the reconciliation service into a gin engine.
type Server struct {
	config  *Config
	service *reconciler.Service
	limiter *rate.Limiter
	logger  logger.Logger
	engine  *gin.Engine
}

// New creates a Server around the given reconciliation service.
func New(config *Config, service *reconciler.Service) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	if service == nil {
		return nil, fmt.Errorf("reconciliation service is required")
	}

	s := &Server{
		config:  config,
		service: service,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		logger:  logger.GetGlobalLogger().WithComponent("server"),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(s.requestLogger())
	engine.Use(s.recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     config.AllowOrigins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-Key", "X-Account-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := engine.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	recon := api.Group("/reconcile")
	recon.Use(s.authenticate())
	recon.Use(s.rateLimit())
	recon.POST("/upload", s.handleUpload)

	s.engine = engine
	return s, nil
}

// Engine exposes the underlying gin engine (used in tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	s.logger.WithField("addr", s.config.ListenAddr).Info("starting HTTP server")
	return s.engine.Run(s.config.ListenAddr)
}
