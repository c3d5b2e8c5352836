package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/program"
)

type createProgramRequest struct {
	Name         string                      `json:"name"`
	Slug         string                      `json:"slug"`
	Type         string                      `json:"type"`
	StartDate    string                      `json:"start_date"`
	ViewConfig   map[string]model.ViewConfig `json:"view_config"`
	AllowStartBy []string                    `json:"allow_start_by"`
	Automations  []model.Automation          `json:"automations"`
}

func (s *Server) createProgram(c echo.Context) error {
	var req createProgramRequest
	if err := c.Bind(&req); err != nil {
		return httpError(fault.Validation("invalid request body"))
	}
	p, err := s.programs.Create(c.Request().Context(), actorFrom(c), program.CreateInput{
		Name:         req.Name,
		Slug:         req.Slug,
		Type:         req.Type,
		StartDate:    req.StartDate,
		ViewConfig:   req.ViewConfig,
		AllowStartBy: req.AllowStartBy,
		Automations:  req.Automations,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) listPrograms(c echo.Context) error {
	programs, err := s.programs.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, programs)
}

func (s *Server) getProgram(c echo.Context) error {
	p, err := s.programs.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type updateProgramRequest struct {
	Name         *string                     `json:"name"`
	Type         *string                     `json:"type"`
	IsActive     *bool                       `json:"is_active"`
	StartDate    *string                     `json:"start_date"`
	ViewConfig   map[string]model.ViewConfig `json:"view_config"`
	AllowStartBy []string                    `json:"allow_start_by"`
	Automations  []model.Automation          `json:"automations"`
}

func (s *Server) updateProgram(c echo.Context) error {
	var req updateProgramRequest
	if err := c.Bind(&req); err != nil {
		return httpError(fault.Validation("invalid request body"))
	}
	p, err := s.programs.Update(c.Request().Context(), actorFrom(c), c.Param("id"), program.Patch{
		Name:         req.Name,
		Type:         req.Type,
		IsActive:     req.IsActive,
		StartDate:    req.StartDate,
		ViewConfig:   req.ViewConfig,
		AllowStartBy: req.AllowStartBy,
		Automations:  req.Automations,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) activateProgram(c echo.Context) error {
	p, err := s.programs.Activate(c.Request().Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) listStages(c echo.Context) error {
	stages, err := s.programs.Stages(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stages)
}

type addStageRequest struct {
	TemplateID      string                       `json:"template_id"`
	Name            string                       `json:"name"`
	Type            string                       `json:"type"`
	OriginalStageID string                       `json:"original_stage_id"`
	FormFields      []model.FormField            `json:"form_fields"`
	RoleAccess      map[string]model.StageAccess `json:"role_access"`
	Automations     []model.Automation           `json:"automations"`
}

func (s *Server) addStage(c echo.Context) error {
	var req addStageRequest
	if err := c.Bind(&req); err != nil {
		return httpError(fault.Validation("invalid request body"))
	}
	st, err := s.programs.AddStage(c.Request().Context(), actorFrom(c), c.Param("id"), program.AddStageInput{
		TemplateID:      req.TemplateID,
		Name:            req.Name,
		Type:            req.Type,
		OriginalStageID: req.OriginalStageID,
		Config:          model.StageConfig{FormFields: req.FormFields},
		RoleAccess:      req.RoleAccess,
		Automations:     req.Automations,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, st)
}

type reorderRequest struct {
	Order []string `json:"order"`
}

func (s *Server) reorderStages(c echo.Context) error {
	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return httpError(fault.Validation("invalid request body"))
	}
	p, err := s.programs.ReorderStages(c.Request().Context(), actorFrom(c), c.Param("id"), req.Order)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) deleteStage(c echo.Context) error {
	if err := s.programs.DeleteStage(c.Request().Context(), actorFrom(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type createTemplateRequest struct {
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	FormFields  []model.FormField  `json:"form_fields"`
	BlockIDs    []string           `json:"block_ids"`
	Automations []model.Automation `json:"automations"`
}

func (s *Server) createTemplate(c echo.Context) error {
	var req createTemplateRequest
	if err := c.Bind(&req); err != nil {
		return httpError(fault.Validation("invalid request body"))
	}
	t, err := s.programs.CreateTemplate(c.Request().Context(), actorFrom(c), model.StageTemplate{
		Name:        req.Name,
		Type:        req.Type,
		Config:      model.StageConfig{FormFields: req.FormFields},
		BlockIDs:    req.BlockIDs,
		Automations: req.Automations,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}
