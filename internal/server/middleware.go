package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "remittance-reconciliation-service/pkg/errors"
	"remittance-reconciliation-service/pkg/logger"
)

// authenticate rejects requests without the configured API key. When no key
// is configured the server runs open (local and test deployments).
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.config.APIKey == "" {
			c.Next()
			return
		}

		if c.GetHeader("X-API-Key") != s.config.APIKey {
			rejectWith(c, apperrors.RejectedInput(apperrors.CodeUnauthenticated, ""))
			return
		}

		c.Next()
	}
}

// rateLimit applies a shared token bucket to the upload endpoint.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, slow down",
			})
			return
		}
		c.Next()
	}
}

// recovery catches any panic in the pipeline and reports it as a generic
// internal failure. A failed run produces no partial output.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered interface{}) {
		s.logger.WithField("panic", recovered).Error("recovered from panic in request handler")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "internal failure",
		})
	})
}

// requestLogger logs one structured line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.WithFields(logger.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(started).String(),
		}).Info("request handled")
	}
}

// rejectWith aborts the request with the error's mapped status and its
// single human-readable message.
func rejectWith(c *gin.Context, err *apperrors.ReconcilerError) {
	c.AbortWithStatusJSON(err.HTTPStatus(), gin.H{"error": err.Error()})
}
