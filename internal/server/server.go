package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/courierhq/dispatch/internal/approval"
	"github.com/courierhq/dispatch/internal/carrier"
	"github.com/courierhq/dispatch/internal/config"
	"github.com/courierhq/dispatch/internal/workflow"
)

// Server implements the HTTP API server for the dispatch agent
type Server struct {
	engine   *workflow.Engine
	gate     *approval.Gate
	registry *carrier.Registry
	hub      *workflow.Hub
	cfg      *config.Config
	sockets  map[*Client]struct{}
	mu       sync.Mutex
}

var ErrInvalidJSON = errors.New("invalid JSON request")

// NewServer creates a new HTTP API server
func NewServer(
	eng *workflow.Engine, gate *approval.Gate,
	registry *carrier.Registry, hub *workflow.Hub, cfg *config.Config,
) *Server {
	return &Server{
		engine:   eng,
		gate:     gate,
		registry: registry,
		hub:      hub,
		cfg:      cfg,
		sockets:  map[*Client]struct{}{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	// Health and discovery
	router.GET("/health", s.handleHealth)
	router.GET("/.well-known/agent.json", s.handleAgentCard)
	router.GET("/providers", s.handleProviders)

	// Agent endpoints
	agent := router.Group("/agent")
	{
		agent.POST("/prompt", s.handlePrompt)
		agent.POST("/prompt/stream", s.handlePromptStream)
	}

	// Approval admin endpoints
	admin := router.Group("/admin")
	{
		admin.GET("/pending-approvals", s.listPendingApprovals)
		admin.GET("/pending-approvals/:resourceID", s.findPendingForResource)
		admin.POST("/approve", s.handleApprove)
		admin.POST("/reject", s.handleReject)
	}

	// WebSocket
	router.GET("/engine/ws", s.handleWebSocket)

	return router
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[c] = struct{}{}
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, c)
}

// CloseWebSockets closes all active WebSocket connections.
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
