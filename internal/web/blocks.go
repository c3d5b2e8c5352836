package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pathwayhr/pathway/internal/block"
	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/role"
)

type createBlockRequest struct {
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
}

func (s *Server) createBlock(c echo.Context) error {
	if err := s.requirePerm(actorFrom(c), role.PermManageBlocks); err != nil {
		return httpError(err)
	}
	var req createBlockRequest
	if err := c.Bind(&req); err != nil {
		return httpError(fault.Validation("invalid request body"))
	}
	b, err := s.blocks.Create(c.Request().Context(), req.Type, req.Name, req.Config)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

// getBlock returns the raw block, so it is restricted to managers. Viewer
// facing access goes through the stage listing, which redacts.
func (s *Server) getBlock(c echo.Context) error {
	if err := s.requirePerm(actorFrom(c), role.PermManageBlocks); err != nil {
		return httpError(err)
	}
	b, err := s.blocks.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

type updateBlockRequest struct {
	Name   *string        `json:"name"`
	Config map[string]any `json:"config"`
}

func (s *Server) updateBlock(c echo.Context) error {
	if err := s.requirePerm(actorFrom(c), role.PermManageBlocks); err != nil {
		return httpError(err)
	}
	var req updateBlockRequest
	if err := c.Bind(&req); err != nil {
		return httpError(fault.Validation("invalid request body"))
	}
	b, err := s.blocks.Update(c.Request().Context(), c.Param("id"), block.UpdatePatch{
		Name:   req.Name,
		Config: req.Config,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) forkBlock(c echo.Context) error {
	if err := s.requirePerm(actorFrom(c), role.PermManageBlocks); err != nil {
		return httpError(err)
	}
	b, err := s.blocks.Fork(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

type passcodeRequest struct {
	Passcode string `json:"passcode"`
}

func (s *Server) validatePasscode(c echo.Context) error {
	var req passcodeRequest
	if err := c.Bind(&req); err != nil {
		return httpError(fault.Validation("invalid request body"))
	}
	ok, err := s.blocks.ValidatePasscode(c.Request().Context(), c.Param("id"), req.Passcode)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": ok})
}

func (s *Server) stageBlocks(c echo.Context) error {
	actor := actorFrom(c)
	views, err := s.blocks.StageBlocks(c.Request().Context(), c.Param("id"), &actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, views)
}
