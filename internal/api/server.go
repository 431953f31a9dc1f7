package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	gnt "github.com/dstotijn/go-notion"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/abelaba/job-parser/internal/domain"
	"github.com/abelaba/job-parser/internal/messaging"
)

// Diagnostics is the database connectivity check behind /debug.
type Diagnostics interface {
	Ping(ctx context.Context) error
	SearchDatabases(ctx context.Context) ([]gnt.Database, error)
}

// SettingsStore reads and writes the user settings.
type SettingsStore interface {
	Settings(ctx context.Context) (domain.Settings, error)
	SetMany(ctx context.Context, values map[string]string) error
}

type Options struct {
	ReleaseMode bool
	RateLimit   float64 // requests per second, 0 disables
	RateBurst   int
	Logger      *slog.Logger

	// AllowedOrigins are the exact browser origins allowed to call the job
	// routes. Empty allows any chrome-extension:// or moz-extension:// origin.
	AllowedOrigins []string
}

type Server struct {
	jobs       messaging.Service
	dispatcher *messaging.Dispatcher
	diag       Diagnostics
	settings   SettingsStore
	log        *slog.Logger
	engine     *gin.Engine
	origins    []string
}

func New(svc messaging.Service, diag Diagnostics, settings SettingsStore, opts Options) *Server {
	if opts.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	registerValidations()

	s := &Server{
		jobs:       svc,
		dispatcher: messaging.NewDispatcher(svc, log),
		diag:       diag,
		settings:   settings,
		log:        log,
		engine:     gin.New(),
		origins:    opts.AllowedOrigins,
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())
	if opts.RateLimit > 0 {
		s.engine.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1))))
	}

	// Requests from any other browser origin are refused with 403.
	cfg := cors.DefaultConfig()
	cfg.AllowOriginFunc = s.allowOrigin
	cfg.AllowBrowserExtensions = true
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID"}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
	s.engine.Use(cors.New(cfg))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)

	s.engine.POST("/message", s.handleMessage)

	job := s.engine.Group("/api/job")
	{
		job.GET("/recent", s.handleRecent)
		job.GET("/stats", s.handleStats)
		job.GET("/streak", s.handleStreak)
		job.POST("", s.handleSave)
		job.POST("/compare", s.handleCompare)
		job.PUT("/:pageID", s.handleUpdate)
	}

	// Settings hold the credentials; only local tools may touch them.
	local := s.engine.Group("", localOnly())
	{
		local.GET("/api/settings", s.handleGetSettings)
		local.PUT("/api/settings", s.handlePutSettings)
		local.GET("/debug/notion", s.handleDebugNotion)
	}
}

// Handler exposes the router for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

const requestIDKey = "request_id"

// requestLogger tags each request with an id and logs it once finished.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.log.Log(c.Request.Context(), level, "request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) allowOrigin(origin string) bool {
	if len(s.origins) > 0 {
		return slices.Contains(s.origins, origin)
	}
	return strings.HasPrefix(origin, "chrome-extension://") || strings.HasPrefix(origin, "moz-extension://")
}

// localOnly refuses browser requests and requests addressed to a host name
// other than the loopback interface, which a rebound DNS name would be.
func localOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Origin") != "" || !isLoopbackHost(c.Request.Host) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "only available to local clients"})
			return
		}
		c.Next()
	}
}

func isLoopbackHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}

func rateLimit(lim *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !lim.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

var registerOnce sync.Once

// registerValidations adds the "jobstatus" tag to gin's validator.
func registerValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("jobstatus", func(fl validator.FieldLevel) bool {
			return domain.Status(fl.Field().String()).Valid()
		})
	})
}

// statusFor maps an error from the job service to an HTTP status.
func statusFor(err error) int {
	var (
		dup  *domain.DuplicateError
		verr *domain.ValidationError
	)
	switch {
	case errors.As(err, &dup):
		return http.StatusConflict
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) fail(c *gin.Context, route string, err error) {
	s.log.Error("request failed",
		"route", route,
		"request_id", c.GetString(requestIDKey),
		"err", err,
	)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
