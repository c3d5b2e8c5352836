// Package program manages workflow templates: programs, their ordered stage
// pipelines, and stage templates. At most one program is active at a time;
// activation is a named operation that deactivates every other program.
package program

import (
	"context"

	"github.com/google/uuid"

	"github.com/pathwayhr/pathway/internal/audit"
	"github.com/pathwayhr/pathway/internal/block"
	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/logging"
	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/role"
	"github.com/pathwayhr/pathway/internal/store"
)

// Service implements program and stage definition operations.
type Service struct {
	store  store.Interface
	blocks *block.Service
	roles  *role.Store
	audit  *audit.Writer
	logger *logging.Logger
}

// NewService creates a Service.
func NewService(st store.Interface, blocks *block.Service, roles *role.Store, auditw *audit.Writer, logger *logging.Logger) *Service {
	return &Service{store: st, blocks: blocks, roles: roles, audit: auditw, logger: logger}
}

func (s *Service) requireManage(actor model.Actor) error {
	if !s.roles.Has(actor.Role, role.PermManagePrograms) {
		return fault.Forbidden("role %q may not manage programs", actor.Role)
	}
	return nil
}

// CreateInput holds the fields for a new program.
type CreateInput struct {
	Name         string
	Slug         string
	Type         string
	StartDate    string
	ViewConfig   map[string]model.ViewConfig
	AllowStartBy []string
	Automations  []model.Automation
}

// Create persists a new, inactive program with an empty stage pipeline.
func (s *Service) Create(ctx context.Context, actor model.Actor, in CreateInput) (*model.Program, error) {
	if err := s.requireManage(actor); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, fault.Validation("program name is required")
	}
	if in.Slug == "" {
		return nil, fault.Validation("program slug is required")
	}
	if in.Type != "" && !model.ProgramTypes[in.Type] {
		return nil, fault.Validation("unrecognized program type %q", in.Type)
	}

	p := &model.Program{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Slug:         in.Slug,
		Type:         in.Type,
		IsActive:     false,
		StageIDs:     []string{},
		StartDate:    in.StartDate,
		ViewConfig:   in.ViewConfig,
		AllowStartBy: in.AllowStartBy,
		Automations:  in.Automations,
	}
	if err := s.store.CreateProgram(ctx, p); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, model.AuditEntry{
		UserID:     actor.UserID,
		Action:     "program_created",
		EntityType: "program",
		EntityID:   p.ID,
		Metadata:   map[string]any{"slug": p.Slug, "type": p.Type},
	})
	return p, nil
}

// Patch is a partial program update. Nil fields are left untouched.
type Patch struct {
	Name         *string
	Type         *string
	IsActive     *bool
	StartDate    *string
	ViewConfig   map[string]model.ViewConfig
	AllowStartBy []string
	Automations  []model.Automation
}

// Update applies a patch. Setting IsActive=true routes through Activate so
// the single-active invariant holds; setting it false just deactivates.
func (s *Service) Update(ctx context.Context, actor model.Actor, id string, patch Patch) (*model.Program, error) {
	if err := s.requireManage(actor); err != nil {
		return nil, err
	}
	if patch.Type != nil && *patch.Type != "" && !model.ProgramTypes[*patch.Type] {
		return nil, fault.Validation("unrecognized program type %q", *patch.Type)
	}

	before, err := s.store.GetProgram(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateProgram(ctx, id, func(p *model.Program) error {
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Type != nil {
			p.Type = *patch.Type
		}
		if patch.StartDate != nil {
			p.StartDate = *patch.StartDate
		}
		if patch.ViewConfig != nil {
			p.ViewConfig = patch.ViewConfig
		}
		if patch.AllowStartBy != nil {
			p.AllowStartBy = patch.AllowStartBy
		}
		if patch.Automations != nil {
			p.Automations = patch.Automations
		}
		if patch.IsActive != nil && !*patch.IsActive {
			p.IsActive = false
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if patch.IsActive != nil && *patch.IsActive {
		if updated, err = s.Activate(ctx, actor, id); err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, model.AuditEntry{
		UserID:     actor.UserID,
		Action:     "program_updated",
		EntityType: "program",
		EntityID:   id,
		Changes: map[string]any{
			"before": map[string]any{"name": before.Name, "type": before.Type, "is_active": before.IsActive},
			"after":  map[string]any{"name": updated.Name, "type": updated.Type, "is_active": updated.IsActive},
		},
	})
	return updated, nil
}

// Activate makes one program the single active program, deactivating all
// others first.
func (s *Service) Activate(ctx context.Context, actor model.Actor, id string) (*model.Program, error) {
	if err := s.requireManage(actor); err != nil {
		return nil, err
	}
	if _, err := s.store.GetProgram(ctx, id); err != nil {
		return nil, err
	}

	all, err := s.store.ListPrograms(ctx)
	if err != nil {
		return nil, err
	}
	for _, other := range all {
		if other.ID == id || !other.IsActive {
			continue
		}
		if _, err := s.store.UpdateProgram(ctx, other.ID, func(p *model.Program) error {
			p.IsActive = false
			return nil
		}); err != nil {
			return nil, err
		}
	}

	activated, err := s.store.UpdateProgram(ctx, id, func(p *model.Program) error {
		p.IsActive = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, model.AuditEntry{
		UserID:     actor.UserID,
		Action:     "program_activated",
		EntityType: "program",
		EntityID:   id,
	})
	return activated, nil
}

// Get returns a program by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Program, error) {
	return s.store.GetProgram(ctx, id)
}

// GetBySlug returns a program by slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.Program, error) {
	return s.store.GetProgramBySlug(ctx, slug)
}

// List returns all programs.
func (s *Service) List(ctx context.Context) ([]*model.Program, error) {
	return s.store.ListPrograms(ctx)
}

// Stages returns the program's non-deleted stages in pipeline order.
func (s *Service) Stages(ctx context.Context, programID string) ([]*model.Stage, error) {
	p, err := s.store.GetProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListStages(ctx, programID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Stage, len(all))
	for _, st := range all {
		byID[st.ID] = st
	}
	var ordered []*model.Stage
	for _, id := range p.StageIDs {
		if st, ok := byID[id]; ok && !st.IsDeleted {
			ordered = append(ordered, st)
		}
	}
	return ordered, nil
}
