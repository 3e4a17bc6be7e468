// Package web serves the HTTP surface: the login endpoint, GraphQL over
// HTTP for queries and mutations, GraphQL over WebSocket for
// subscriptions, and the operational endpoints.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chat-api/auth"
	"chat-api/observability"
	"chat-api/services"
)

type Server struct {
	engine      *gin.Engine
	log         *slog.Logger
	schema      graphql.Schema
	tokens      *auth.TokenService
	authService services.IAuthService
	metrics     *observability.Metrics
}

func NewServer(
	log *slog.Logger,
	schema graphql.Schema,
	tokens *auth.TokenService,
	authService services.IAuthService,
	metrics *observability.Metrics,
	registry *prometheus.Registry,
) *Server {
	s := &Server{
		log:         log,
		schema:      schema,
		tokens:      tokens,
		authService: authService,
		metrics:     metrics,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), corsMiddleware())

	engine.POST("/login", s.handleLogin)
	engine.POST("/graphql", s.bearerMiddleware(), s.handleGraphQL)
	engine.GET("/graphql", s.handleWebSocket)
	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	engine.GET("/metrics", gin.WrapH(
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	))

	s.engine = engine
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

type graphqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// handleGraphQL executes a query or mutation. Authorization failures are
// field-level GraphQL errors, not HTTP errors: the request itself always
// answers 200 once it parses.
func (s *Server) handleGraphQL(c *gin.Context) {
	var req graphqlRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid GraphQL request body"})
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        c.Request.Context(),
	})
	c.JSON(http.StatusOK, result)
}
