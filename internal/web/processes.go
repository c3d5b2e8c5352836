package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/store"
)

type createProcessRequest struct {
	ProgramID string `json:"program_id"`
	Type      string `json:"type"`
}

func (s *Server) createProcess(c echo.Context) error {
	var req createProcessRequest
	if err := c.Bind(&req); err != nil {
		return httpError(fault.Validation("invalid request body"))
	}
	p, err := s.processes.Create(c.Request().Context(), actorFrom(c), req.ProgramID, req.Type)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) listProcesses(c echo.Context) error {
	filter := store.ProcessFilter{
		UserID:    c.QueryParam("user_id"),
		ProgramID: c.QueryParam("program_id"),
		Status:    c.QueryParam("status"),
	}
	processes, err := s.processes.List(c.Request().Context(), actorFrom(c), filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, processes)
}

func (s *Server) getProcess(c echo.Context) error {
	p, err := s.processes.Get(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) processAudit(c echo.Context) error {
	// Visibility piggybacks on Get: whoever may see the process may see
	// its trail.
	if _, err := s.processes.Get(c.Request().Context(), actorFrom(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	entries, err := s.audit.List(c.Request().Context(), "process", c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

type submitStageRequest struct {
	StageID string         `json:"stage_id"`
	Data    map[string]any `json:"data"`
}

func (s *Server) submitStage(c echo.Context) error {
	var req submitStageRequest
	if err := c.Bind(&req); err != nil {
		return httpError(fault.Validation("invalid request body"))
	}
	p, err := s.processes.SubmitStage(c.Request().Context(), actorFrom(c), c.Param("id"), req.StageID, req.Data)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) updateProcessStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return httpError(fault.Validation("invalid request body"))
	}
	p, err := s.processes.UpdateStatus(c.Request().Context(), actorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProcess(c echo.Context) error {
	if err := s.processes.SoftDelete(c.Request().Context(), actorFrom(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
