package program

import (
	"context"

	"github.com/google/uuid"

	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/store"
)

// AddStageInput describes a stage to append to a program's pipeline. When
// TemplateID is set the stage is instantiated from the template and the
// other fields override the template's values where non-zero.
type AddStageInput struct {
	TemplateID      string
	Name            string
	Type            string
	OriginalStageID string
	Config          model.StageConfig
	RoleAccess      map[string]model.StageAccess
	Automations     []model.Automation
}

// AddStage appends a new stage to the program's pipeline. Instantiating from
// a template deep-copies every block the template references: the new stage
// points at fresh block instances, never at the template's originals.
func (s *Service) AddStage(ctx context.Context, actor model.Actor, programID string, in AddStageInput) (*model.Stage, error) {
	if err := s.requireManage(actor); err != nil {
		return nil, err
	}
	if _, err := s.store.GetProgram(ctx, programID); err != nil {
		return nil, err
	}

	st := &model.Stage{
		ID:              uuid.New().String(),
		ProgramID:       programID,
		Name:            in.Name,
		Type:            in.Type,
		Config:          in.Config,
		RoleAccess:      in.RoleAccess,
		OriginalStageID: in.OriginalStageID,
		Automations:     in.Automations,
	}

	if in.TemplateID != "" {
		tmpl, err := s.store.GetTemplate(ctx, in.TemplateID)
		if err != nil {
			return nil, err
		}
		if st.Name == "" {
			st.Name = tmpl.Name
		}
		if st.Type == "" {
			st.Type = tmpl.Type
		}
		if len(st.Config.FormFields) == 0 {
			st.Config = tmpl.Config
		}
		if st.Automations == nil {
			st.Automations = tmpl.Automations
		}
		for _, blockID := range tmpl.BlockIDs {
			copied, err := s.blocks.Fork(ctx, blockID)
			if err != nil {
				return nil, err
			}
			st.BlockIDs = append(st.BlockIDs, copied.ID)
		}
	}

	if st.Type == "" {
		st.Type = model.StageTypeStatic
	}
	if st.Name == "" {
		return nil, fault.Validation("stage name is required")
	}

	if err := s.store.CreateStage(ctx, st); err != nil {
		return nil, err
	}
	if _, err := s.store.UpdateProgram(ctx, programID, func(p *model.Program) error {
		p.StageIDs = append(p.StageIDs, st.ID)
		return nil
	}); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, model.AuditEntry{
		UserID:     actor.UserID,
		Action:     "stage_added",
		EntityType: "stage",
		EntityID:   st.ID,
		Metadata:   map[string]any{"program_id": programID, "template_id": in.TemplateID},
	})
	return st, nil
}

// ReorderStages replaces the program's whole stage order. The new order must
// be a permutation of the current one; appending or dropping stages goes
// through AddStage and DeleteStage instead.
func (s *Service) ReorderStages(ctx context.Context, actor model.Actor, programID string, order []string) (*model.Program, error) {
	if err := s.requireManage(actor); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateProgram(ctx, programID, func(p *model.Program) error {
		if len(order) != len(p.StageIDs) {
			return fault.Validation("stage order must contain exactly the current %d stage ids", len(p.StageIDs))
		}
		current := make(map[string]bool, len(p.StageIDs))
		for _, id := range p.StageIDs {
			current[id] = true
		}
		seen := make(map[string]bool, len(order))
		for _, id := range order {
			if !current[id] {
				return fault.Validation("stage %s is not part of the program", id)
			}
			if seen[id] {
				return fault.Validation("stage %s appears twice in the order", id)
			}
			seen[id] = true
		}
		p.StageIDs = append([]string(nil), order...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, model.AuditEntry{
		UserID:     actor.UserID,
		Action:     "stages_reordered",
		EntityType: "program",
		EntityID:   programID,
		Metadata:   map[string]any{"order": order},
	})
	return updated, nil
}

// DeleteStage soft-deletes a stage and removes it from the owning program's
// pipeline. A process's current stage must always be a live stage, so any
// process parked on the deleted stage is repointed to its successor in
// pipeline order (the surviving predecessor when the deleted stage was last),
// and deleting a program's only stage fails with Conflict while processes sit
// on it. Block instances the stage referenced are left in place for the
// audit trail.
func (s *Service) DeleteStage(ctx context.Context, actor model.Actor, stageID string) error {
	if err := s.requireManage(actor); err != nil {
		return err
	}
	st, err := s.store.GetStage(ctx, stageID)
	if err != nil {
		return err
	}

	procs, err := s.store.ListProcesses(ctx, store.ProcessFilter{ProgramID: st.ProgramID})
	if err != nil {
		return err
	}
	var parked []*model.Process
	for _, p := range procs {
		if p.CurrentStageID == stageID {
			parked = append(parked, p)
		}
	}

	var successor string
	if _, err := s.store.UpdateProgram(ctx, st.ProgramID, func(p *model.Program) error {
		kept := make([]string, 0, len(p.StageIDs))
		for i, id := range p.StageIDs {
			if id == stageID {
				if i+1 < len(p.StageIDs) {
					successor = p.StageIDs[i+1]
				}
				continue
			}
			kept = append(kept, id)
		}
		if successor == "" && len(kept) > 0 {
			successor = kept[len(kept)-1]
		}
		if successor == "" && len(parked) > 0 {
			return fault.Conflict("stage %s is the program's only stage and has processes on it", stageID)
		}
		p.StageIDs = kept
		return nil
	}); err != nil {
		return err
	}

	if _, err := s.store.UpdateStage(ctx, stageID, func(st *model.Stage) error {
		st.IsDeleted = true
		return nil
	}); err != nil {
		return err
	}

	for _, proc := range parked {
		if _, err := s.store.UpdateProcess(ctx, proc.ID, func(p *model.Process) error {
			if p.CurrentStageID == stageID {
				p.CurrentStageID = successor
			}
			return nil
		}); err != nil {
			return err
		}
	}

	s.audit.Record(ctx, model.AuditEntry{
		UserID:     actor.UserID,
		Action:     "stage_deleted",
		EntityType: "stage",
		EntityID:   stageID,
		Metadata:   map[string]any{"program_id": st.ProgramID},
	})
	return nil
}

// CreateTemplate stores a reusable stage template.
func (s *Service) CreateTemplate(ctx context.Context, actor model.Actor, t model.StageTemplate) (*model.StageTemplate, error) {
	if err := s.requireManage(actor); err != nil {
		return nil, err
	}
	if t.Name == "" {
		return nil, fault.Validation("template name is required")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if err := s.store.CreateTemplate(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
