// Package web exposes the engine's operations as a JSON API. Handlers stay
// thin: bind, call the service, map the error taxonomy to HTTP statuses.
package web

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pathwayhr/pathway/internal/audit"
	"github.com/pathwayhr/pathway/internal/block"
	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/logging"
	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/process"
	"github.com/pathwayhr/pathway/internal/program"
	"github.com/pathwayhr/pathway/internal/role"
)

// Server is the HTTP API server.
type Server struct {
	echo      *echo.Echo
	programs  *program.Service
	processes *process.Engine
	blocks    *block.Service
	roles     *role.Store
	audit     *audit.Writer
	identity  *Identity
	logger    *logging.Logger
}

// NewServer wires the API routes over the engine services.
func NewServer(
	programs *program.Service,
	processes *process.Engine,
	blocks *block.Service,
	roles *role.Store,
	auditw *audit.Writer,
	identity *Identity,
	logger *logging.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		programs:  programs,
		processes: processes,
		blocks:    blocks,
		roles:     roles,
		audit:     auditw,
		identity:  identity,
		logger:    logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := s.echo.Group("/api/v1")
	api.Use(s.identity.Middleware())

	api.GET("/programs", s.listPrograms)
	api.POST("/programs", s.createProgram)
	api.GET("/programs/:id", s.getProgram)
	api.PATCH("/programs/:id", s.updateProgram)
	api.POST("/programs/:id/activate", s.activateProgram)
	api.GET("/programs/:id/stages", s.listStages)
	api.POST("/programs/:id/stages", s.addStage)
	api.PUT("/programs/:id/stages/order", s.reorderStages)
	api.DELETE("/stages/:id", s.deleteStage)
	api.GET("/stages/:id/blocks", s.stageBlocks)
	api.POST("/stage-templates", s.createTemplate)

	api.POST("/processes", s.createProcess)
	api.GET("/processes", s.listProcesses)
	api.GET("/processes/:id", s.getProcess)
	api.GET("/processes/:id/audit", s.processAudit)
	api.POST("/processes/:id/submit", s.submitStage)
	api.PUT("/processes/:id/status", s.updateProcessStatus)
	api.DELETE("/processes/:id", s.deleteProcess)

	api.POST("/blocks", s.createBlock)
	api.GET("/blocks/:id", s.getBlock)
	api.PATCH("/blocks/:id", s.updateBlock)
	api.POST("/blocks/:id/fork", s.forkBlock)
	api.POST("/blocks/:id/passcode", s.validatePasscode)
}

// Handler exposes the router (for tests and embedding).
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start runs the server until Shutdown.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// requirePerm fails with Forbidden unless the actor's role holds the named
// capability.
func (s *Server) requirePerm(actor model.Actor, permission string) error {
	if !s.roles.Has(actor.Role, permission) {
		return fault.Forbidden("role %q lacks %s", actor.Role, permission)
	}
	return nil
}
