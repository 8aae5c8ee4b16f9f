package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/S-Corkum/taskboard/internal/events"
	"github.com/S-Corkum/taskboard/internal/observability"
)

// connectionIDHeader carries the caller's websocket connection id so
// its own mutations are not echoed back to it.
const connectionIDHeader = "X-Connection-ID"

// RequestLogger middleware logs HTTP requests
func RequestLogger(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request", map[string]interface{}{
			"client_ip": c.ClientIP(),
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"method":    c.Request.Method,
			"path":      path,
		})

		if len(c.Errors) > 0 {
			logger.Error("request errors", map[string]interface{}{
				"path":   path,
				"errors": c.Errors.String(),
			})
		}
	}
}

// OriginConnection copies the caller's connection id header into the
// request context for the broadcast echo-exclusion policy.
func OriginConnection() gin.HandlerFunc {
	return func(c *gin.Context) {
		if connID := c.GetHeader(connectionIDHeader); connID != "" {
			ctx := events.WithOrigin(c.Request.Context(), connID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// RateLimiterStorage provides per-client limiter storage
type RateLimiterStorage struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	expiry   map[string]time.Time
	config   RateLimitConfig
}

// NewRateLimiterStorage creates a new rate limiter storage
func NewRateLimiterStorage(config RateLimitConfig) *RateLimiterStorage {
	return &RateLimiterStorage{
		limiters: make(map[string]*rate.Limiter),
		expiry:   make(map[string]time.Time),
		config:   config,
	}
}

// GetLimiter returns the rate limiter for a given client key
func (s *RateLimiterStorage) GetLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limiter, exists := s.limiters[key]; exists {
		if time.Now().Before(s.expiry[key]) {
			return limiter
		}
		delete(s.limiters, key)
		delete(s.expiry, key)
	}

	limiter := rate.NewLimiter(rate.Limit(s.config.Limit), s.config.Burst)
	s.limiters[key] = limiter
	s.expiry[key] = time.Now().Add(s.config.Expiration)

	return limiter
}

// RateLimiter middleware implements per-client-IP rate limiting
func RateLimiter(config RateLimitConfig) gin.HandlerFunc {
	storage := NewRateLimiterStorage(config)

	return func(c *gin.Context) {
		limiter := storage.GetLimiter(c.ClientIP())

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

// CORSMiddleware enables Cross-Origin Resource Sharing
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := "*"
	if len(allowedOrigins) > 0 {
		allowed = strings.Join(allowedOrigins, ", ")
	}

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowed)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Connection-ID, X-Requested-With")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
