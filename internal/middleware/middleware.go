// Package middleware provides HTTP middleware for the application
package middleware

import (
	"net/http"
	"strings"
	"time"

	app_errors "inkcloud/internal/errors"
	"inkcloud/internal/response"
	"inkcloud/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Authenticator verifies an admin key.
type Authenticator interface {
	Verify(key string) bool
}

// Logger creates a high-performance logging middleware
func Logger(config types.LogConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if path == "/health" && c.Writer.Status() < 400 {
			return
		}

		latency := time.Since(start)
		if raw != "" {
			path = path + "?" + raw
		}

		fields := logrus.Fields{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    path,
			"ip":      c.ClientIP(),
			"latency": latency,
		}
		if domain := c.Param("domain"); domain != "" {
			fields["domain"] = domain
		}
		if id, ok := c.Get("requestID"); ok {
			fields["request_id"] = id
		}

		entry := logrus.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request failed")
		case c.Writer.Status() >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Debug("Request served")
		}
	}
}

// CORS creates a CORS middleware
func CORS(config types.CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.Enabled {
			c.Next()
			return
		}

		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range config.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		c.Header("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
		c.Header("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))

		if config.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Auth creates an authentication middleware for the admin API
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := extractAuthKey(c)
		if key == "" || !auth.Verify(key) {
			response.Error(c, app_errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Next()
	}
}

// Recovery creates a recovery middleware with custom error handling
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if err, ok := recovered.(string); ok {
			logrus.Errorf("Panic recovered: %s", err)
		} else {
			logrus.Errorf("Panic recovered: %v", recovered)
		}
		response.Error(c, app_errors.ErrInternalServer)
		c.Abort()
	})
}

// ErrorHandler creates an error handling middleware
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			logrus.WithError(err).Error("Unhandled request error")
			response.Error(c, app_errors.FromSyncError(err))
		}
	}
}

// extractAuthKey reads the key from the Authorization header, the X-Api-Key header or, for
// websocket upgrades that cannot set headers, the key query parameter.
func extractAuthKey(c *gin.Context) string {
	if key := c.Query("key"); key != "" {
		return key
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		const bearerPrefix = "Bearer "
		if strings.HasPrefix(authHeader, bearerPrefix) {
			return authHeader[len(bearerPrefix):]
		}
	}

	if key := c.GetHeader("X-Api-Key"); key != "" {
		return key
	}

	return ""
}

// RequestID tags each request with a short id for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}
