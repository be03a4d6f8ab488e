// Package api exposes the HTTP/SSE surface (spec §4.12, §6): session
// listing and retrieval, the two chat entry points (SSE-for-EventSource
// GET and JSON-body POST), and a health probe.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/kitchencore/reasoner/pkg/metrics"
	"github.com/kitchencore/reasoner/pkg/orchestrate"
	"github.com/kitchencore/reasoner/pkg/resourcemon"
	"github.com/kitchencore/reasoner/pkg/session"
)

// ownerHeader is the user id header every session-scoped endpoint
// enforces ownership against (spec §4.12).
const ownerHeader = "X-User-Id"

// Server is the HTTP API server.
type Server struct {
	engine   *gin.Engine
	cfg      config.HTTPConfig
	sessions session.Store
	pipeline *orchestrate.Pipeline
	monitor  *resourcemon.Monitor
	cancels  *orchestrate.CancelRegistry
	log      *slog.Logger
}

// NewServer creates a Server wired to its dependencies and registers all
// routes.
func NewServer(cfg config.HTTPConfig, sessions session.Store, pipeline *orchestrate.Pipeline, monitor *resourcemon.Monitor, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	e := gin.New()
	e.Use(gin.Recovery())
	e.Use(requestLogger(log))
	e.Use(corsMiddleware(cfg.AllowedOrigins))
	e.Use(securityHeaders())

	s := &Server{
		engine:   e,
		cfg:      cfg,
		sessions: sessions,
		pipeline: pipeline,
		monitor:  monitor,
		cancels:  orchestrate.NewCancelRegistry(),
		log:      log,
	}
	s.setupRoutes()
	return s
}

// Engine exposes the underlying gin engine, e.g. for http.ListenAndServe.
func (s *Server) Engine() http.Handler { return s.engine }

// setupRoutes registers every endpoint in spec §4.12.
func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	s.engine.GET("/api/conversation", s.getConversationHandler)
	s.engine.GET("/api/conversations", s.listConversationsHandler)
	s.engine.POST("/api/conversation", s.createConversationHandler)
	s.engine.GET("/api/chat/stream", s.chatStreamHandler)
	s.engine.POST("/api/chat", s.chatPostHandler)
}

// securityHeaders mirrors the teacher's echo middleware of the same
// name, translated to a gin handler func.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		c.Next()
	}
}

// corsMiddleware allows the configured origin list with credentials
// (spec §6); an empty allow-list permits every origin, matching a
// development-mode default.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := map[string]bool{}
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (len(allowed) == 0 || allowed[origin]) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+ownerHeader)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// requesterID extracts the owner header, trimmed of surrounding
// whitespace.
func requesterID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(ownerHeader))
}
