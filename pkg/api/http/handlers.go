package http

import (
	"errors"
	"net/http"

	"github.com/aescanero/gputest/internal/application/benchmark"
	"github.com/gin-gonic/gin"
)

// Response bodies
const (
	indexMessage       = "GPU Test API is running"
	pongMessage        = "pong"
	unavailableMessage = "GPU not available"
)

// handleIndex reports that the service is up
func (s *Server) handleIndex(c *gin.Context) {
	c.String(http.StatusOK, indexMessage)
}

// handlePing answers health checks
func (s *Server) handlePing(c *gin.Context) {
	c.String(http.StatusOK, pongMessage)
}

// handleGPUTest runs one benchmark on the accelerator.
// A missing accelerator is a normal 200 answer; device failures are a bare 500.
func (s *Server) handleGPUTest(c *gin.Context) {
	result, err := s.runner.Run(c.Request.Context())
	if errors.Is(err, benchmark.ErrUnavailable) {
		c.String(http.StatusOK, unavailableMessage)
		return
	}
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.String(http.StatusOK, result.Message())
}
