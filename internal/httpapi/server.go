// Package httpapi is a thin gin layer exposing the governance core's five
// components over HTTP. Router shape is explicitly out of scope;
// this package only proves every core operation is callable over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/r3e-network/governance-core/internal/auditor"
	svcerrors "github.com/r3e-network/governance-core/internal/errors"
	"github.com/r3e-network/governance-core/internal/llmgateway"
	"github.com/r3e-network/governance-core/internal/logger"
	"github.com/r3e-network/governance-core/internal/psmp"
	"github.com/r3e-network/governance-core/internal/securegw"
	"github.com/r3e-network/governance-core/internal/statemgr"
)

// Server wires the five governance components behind a gin.Engine.
type Server struct {
	engine  *gin.Engine
	state   *statemgr.Manager
	psmp    *psmp.Engine
	gateway *securegw.Gateway
	llm     *llmgateway.Gateway
	audit   *auditor.Auditor
	log     *logger.Logger
}

// New builds a Server and registers every route.
func New(state *statemgr.Manager, engine *psmp.Engine, gateway *securegw.Gateway, llm *llmgateway.Gateway, audit *auditor.Auditor, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	s := &Server{
		engine:  gin.New(),
		state:   state,
		psmp:    engine,
		gateway: gateway,
		llm:     llm,
		audit:   audit,
		log:     log,
	}
	s.engine.Use(gin.Recovery(), s.logRequests())
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.WithField("method", c.Request.Method).
			WithField("path", c.Request.URL.Path).
			WithField("status", c.Writer.Status()).
			Info("request handled")
	}
}

func (s *Server) registerRoutes() {
	s.engine.POST("/projects", s.createProject)
	s.engine.POST("/projects/:id/transition", s.transitionProject)
	s.engine.GET("/projects/:id/conflicts", s.getConflicts)
	s.engine.GET("/projects/:id/manifest", s.getManifest)
	s.engine.POST("/projects/:id/resolve", s.resolveConflict)

	s.engine.POST("/artifacts", s.declareArtifact)

	s.engine.POST("/llm/classify", s.classify)
	s.engine.POST("/llm/generate", s.generate)

	s.engine.GET("/audit", s.queryAudit)
	s.engine.GET("/audit/summary", s.summarizeAudit)
}

func errorResponse(c *gin.Context, err error) {
	se := svcerrors.GetServiceError(err)
	if se == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	body := gin.H{"code": se.Code, "message": se.Message}
	if len(se.Details) > 0 {
		body["details"] = se.Details
	}
	c.JSON(se.HTTPStatus, body)
}

// ctxWithRequest returns the gin request's underlying context for
// cancellation-aware downstream calls.
func ctxWithRequest(c *gin.Context) context.Context { return c.Request.Context() }
