// Package api exposes a read-only localhost status endpoint. It keeps
// no history and serves no UI.
package api

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/bulletd/bulletd/api/middlewares"
	"github.com/bulletd/bulletd/daemon"
	"github.com/bulletd/bulletd/tool"
)

// Server serves the local status API.
type Server struct {
	port   int
	status *daemon.Status
}

func NewServer(port int, status *daemon.Status) *Server {
	return &Server{port: port, status: status}
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/status", s.HandleStatus)
	}
	return engine
}

// HandleStatus returns the supervisor's current state and counters.
func (s *Server) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Snapshot())
}

// Start binds the loopback interface only and blocks serving requests.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	tool.DefaultLogger.Infof("Starting status API on http://%s", addr)
	server := &http.Server{
		Addr:    addr,
		Handler: s.setupRoutes(),
	}
	return server.ListenAndServe()
}
