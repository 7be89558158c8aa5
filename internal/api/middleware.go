package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"order-engine/internal/auth"
	"order-engine/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

// loggingMiddleware writes one access log entry per request and tags the
// response with a request id
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if username, ok := c.Get("username"); ok {
			fields = append(fields, zap.Any("username", username))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("HTTP request", fields...)
			return
		}
		logger.Info("HTTP request", fields...)
	}
}

// authMiddleware admits requests carrying a valid admin bearer token
func authMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, NewStandardError("Unauthorized", "missing authorization header", "Header: Authorization"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWith(c, NewStandardError("Unauthorized", "invalid authorization header format", "Expected: Bearer <token>"))
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			logger.Warn("Rejected token",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(err))
			if errors.Is(err, auth.ErrExpiredToken) {
				abortWith(c, NewStandardError("Unauthorized", "token expired", "Token has expired, please login again"))
				return
			}
			abortWith(c, NewStandardError("Unauthorized", "invalid token", err.Error()))
			return
		}

		if !claims.IsAdmin() {
			logger.Warn("Non-admin order mutation attempt",
				zap.String("username", claims.Username),
				zap.String("path", c.Request.URL.Path))
			abortWith(c, NewStandardError("Forbidden", "admin role required", "Role: "+claims.Role))
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

func abortWith(c *gin.Context, stdErr *StandardError) {
	c.AbortWithStatusJSON(stdErr.HTTPStatus(), stdErr)
}
