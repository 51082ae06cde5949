// Package httpapi exposes the answer pipeline over HTTP using gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Defaults for Config.
const (
	DefaultAddr         = ":8080"
	DefaultMaxBodyBytes = 1 << 20
	shutdownTimeout     = 10 * time.Second
)

// ErrMissingAnswerService is returned when no answer service is provided.
var ErrMissingAnswerService = errors.New("httpapi: answer service is required")

// Config configures the HTTP surface.
type Config struct {
	// Addr is the listen address (default ":8080").
	Addr string

	// AllowedOrigins enables CORS for the listed origins. Empty disables CORS.
	AllowedOrigins []string

	// FloodRate caps requests per second across the whole process, before
	// any per-IP accounting. Zero disables the guard.
	FloodRate float64

	// FloodBurst is the token bucket size for FloodRate (default: FloodRate rounded up).
	FloodBurst int

	// MaxBodyBytes limits request bodies (default 1 MiB).
	MaxBodyBytes int64
}

// Server serves the answer API.
type Server struct {
	cfg      Config
	answers  driving.AnswerService
	settings driving.SettingsService
	engine   *gin.Engine
}

// NewServer creates the HTTP server. settings may be nil, in which case
// proxy headers are never trusted.
func NewServer(cfg Config, answers driving.AnswerService, settings driving.SettingsService) (*Server, error) {
	if answers == nil {
		return nil, ErrMissingAnswerService
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	if !logger.IsVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		answers:  answers,
		settings: settings,
		engine:   gin.New(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("HTTP API listening on %s", s.cfg.Addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) routes() {
	// Client IPs are resolved from settings, not gin's proxy list.
	_ = s.engine.SetTrustedProxies(nil)

	s.engine.Use(gin.Recovery(), requestLogger())
	if len(s.cfg.AllowedOrigins) > 0 {
		s.engine.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{"Content-Type", "Accept"},
			MaxAge:       12 * time.Hour,
		}))
	}

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/api")
	api.Use(bodyLimit(s.cfg.MaxBodyBytes))
	if s.cfg.FloodRate > 0 {
		burst := s.cfg.FloodBurst
		if burst <= 0 {
			burst = int(s.cfg.FloodRate + 0.999)
		}
		api.Use(floodGuard(rate.NewLimiter(rate.Limit(s.cfg.FloodRate), burst)))
	}
	{
		api.POST("/answers", s.handleAnswer)
		api.GET("/challenge", s.handleChallenge)
		api.POST("/feedback", s.handleFeedback)
		api.POST("/log", s.handleLog)
	}
}

// trustProxy reports whether X-Forwarded-For should be honoured.
func (s *Server) trustProxy() bool {
	if s.settings == nil {
		return false
	}
	settings, err := s.settings.Get()
	if err != nil {
		return false
	}
	return settings.TrustProxy
}

// statusFor maps an outcome to its HTTP status.
func statusFor(outcome domain.Outcome) int {
	if outcome.OK() {
		return http.StatusOK
	}
	switch outcome.Code.Public() {
	case domain.CodeInvalidQuery:
		return http.StatusBadRequest
	case domain.CodeBotDetected:
		return http.StatusForbidden
	case domain.CodeRateLimited:
		return http.StatusTooManyRequests
	case domain.CodeNotConfigured:
		return http.StatusServiceUnavailable
	case domain.CodeNoResults:
		return http.StatusOK
	default:
		return http.StatusBadGateway
	}
}
