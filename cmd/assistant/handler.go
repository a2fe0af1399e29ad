// In file: cmd/assistant/handler.go
package main

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dileep-u-k/weather-assistant/internal/api"
	"github.com/dileep-u-k/weather-assistant/internal/assistant"
	"github.com/dileep-u-k/weather-assistant/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHeader carries the conversation id on requests and responses.
const SessionHeader = "X-Session-ID"

// QueryHandler exposes the query service over HTTP. Every /query response is
// a 200 with the JSON envelope; failures travel inside it.
type QueryHandler struct {
	service *assistant.Service
}

func NewQueryHandler(service *assistant.Service) *QueryHandler {
	return &QueryHandler{service: service}
}

func (h *QueryHandler) HandleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Weather Assistant API is running"})
}

func (h *QueryHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "healthy"})
}

func (h *QueryHandler) HandleQuery(c *gin.Context) {
	sessionID := strings.TrimSpace(c.GetHeader(SessionHeader))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	c.Header(SessionHeader, sessionID)

	var req api.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.From(c.Request.Context()).Info("invalid request body", "session_id", sessionID, "error", err)
		c.JSON(http.StatusOK, api.NewErrorResponse("Invalid request: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, h.service.Handle(c.Request.Context(), sessionID, req.Query))
}

// NewRouter wires the handlers and middleware into a gin engine.
func NewRouter(handler *QueryHandler, logger *slog.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger), corsMiddleware())

	engine.GET("/", handler.HandleRoot)
	engine.GET("/health", handler.HandleHealth)
	engine.POST("/query", handler.HandleQuery)
	return engine
}

// requestLogger attaches logger to the request context and writes one line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logging.With(c.Request.Context(), logger))

		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// corsMiddleware allows any origin, method and header, with credentials.
// The origin is echoed back since "*" is not valid alongside credentials.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Expose-Headers", SessionHeader)
		h.Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT")
			if requested := c.GetHeader("Access-Control-Request-Headers"); requested != "" {
				h.Set("Access-Control-Allow-Headers", requested)
			}
			h.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
