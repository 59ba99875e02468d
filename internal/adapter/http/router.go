package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"currency-tracker/internal/metrics"
	"currency-tracker/pkg/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	loggerKey       = "request_logger"
)

type RouterConfig struct {
	// RateLimit uses the limiter's formatted notation, e.g. "60-M".
	RateLimit          string
	CORSAllowedOrigins []string
	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
}

type Router struct {
	handler *Handler
	log     *logger.Logger
	metrics *metrics.Metrics
	config  RouterConfig
}

func NewRouter(handler *Handler, log *logger.Logger, m *metrics.Metrics, config RouterConfig) *Router {
	return &Router{
		handler: handler,
		log:     log,
		metrics: orUnregistered(m),
		config:  config,
	}
}

// loggingMiddleware tags each request with an id, hands a request-scoped logger to
// the handlers and records request metrics.
func (r *Router) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		reqLog := r.log.With("request_id", requestID)
		c.Set(loggerKey, reqLog)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		if path != "/metrics" {
			duration := time.Since(start).Seconds()
			r.metrics.HTTPRequestDuration.WithLabelValues(path, c.Request.Method).Observe(duration)
			r.metrics.HTTPRequestsTotal.WithLabelValues(path, c.Request.Method, fmt.Sprintf("%dxx", status/100)).Inc()
		}

		reqLog.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", status,
			"duration", time.Since(start),
			"remote_addr", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)
	}
}

// rateLimitMiddleware limits requests per client IP.
func (r *Router) rateLimitMiddleware(instance *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		lctx, err := instance.Get(c.Request.Context(), ip)
		if err != nil {
			requestLogger(c, r.log).Error("Failed to get rate limit context", "ip", ip, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{Error: "internal server error"})
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprint(lctx.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprint(lctx.Remaining))

		if lctx.Reached {
			requestLogger(c, r.log).Warn("Rate limit exceeded", "ip", ip, "limit", lctx.Limit)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{Error: "too many requests, please try again later"})
			return
		}

		c.Next()
	}
}

func (r *Router) corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	origins := r.config.CORSAllowedOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.ExposeHeaders = []string{requestIDHeader}
	return cors.New(cfg)
}

// SetupRoutes builds the gin engine. It fails only on a malformed rate limit.
func (r *Router) SetupRoutes() (*gin.Engine, error) {
	rate, err := limiter.NewRateFromFormatted(r.config.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", r.config.RateLimit, err)
	}
	ipLimiter := limiter.New(memory.NewStore(), rate)

	engine := gin.New()
	engine.Use(r.loggingMiddleware(), gin.Recovery(), r.corsMiddleware())

	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	engine.GET("/health", r.handler.HealthHandler)

	var metricsHandler http.Handler = promhttp.Handler()
	if r.config.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(r.config.Gatherer, promhttp.HandlerOpts{})
	}
	engine.GET("/metrics", gin.WrapH(metricsHandler))

	api := engine.Group("/api/v1", r.rateLimitMiddleware(ipLimiter))
	{
		rates := api.Group("/rates")
		rates.GET("/latest", r.handler.GetLatestRateHandler)
		rates.GET("/history", r.handler.GetHistoryHandler)
		rates.GET("/average", r.handler.GetAverageHandler)
		rates.GET("/trend", r.handler.GetTrendHandler)

		api.POST("/admin/ingest", r.handler.RunIngestionHandler)
	}

	return engine, nil
}

func requestLogger(c *gin.Context, fallback *logger.Logger) *logger.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*logger.Logger); ok {
			return l
		}
	}
	return fallback
}
