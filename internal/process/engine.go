// Package process is the state machine at the heart of the engine: one
// user's traversal of a program, advanced by stage submissions and
// privileged status updates. The stage pointer and the status are
// independent; the pointer only ever moves forward.
package process

import (
	"context"

	"github.com/google/uuid"

	"github.com/pathwayhr/pathway/internal/audit"
	"github.com/pathwayhr/pathway/internal/automation"
	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/logging"
	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/ratelimit"
	"github.com/pathwayhr/pathway/internal/role"
	"github.com/pathwayhr/pathway/internal/store"
)

// ActionCreate is the rate-limit key charged per process creation.
const ActionCreate = "process_create"

// Engine implements process operations.
type Engine struct {
	store     store.Interface
	roles     *role.Store
	limiter   *ratelimit.Limiter
	audit     *audit.Writer
	evaluator *automation.Evaluator
	logger    *logging.Logger

	syncAutomations bool
}

// NewEngine creates an Engine.
func NewEngine(
	st store.Interface,
	roles *role.Store,
	limiter *ratelimit.Limiter,
	auditw *audit.Writer,
	evaluator *automation.Evaluator,
	logger *logging.Logger,
) *Engine {
	return &Engine{
		store:     st,
		roles:     roles,
		limiter:   limiter,
		audit:     auditw,
		evaluator: evaluator,
		logger:    logger,
	}
}

// SetSynchronousAutomations makes automation evaluation run inline instead
// of in a post-commit goroutine (for testing).
func (e *Engine) SetSynchronousAutomations(sync bool) {
	e.syncAutomations = sync
}

// dispatch hands an event to the evaluator after the triggering mutation has
// committed. The evaluator never blocks the caller and its failures never
// roll back the state change.
func (e *Engine) dispatch(ev automation.Event) {
	if e.syncAutomations {
		e.evaluator.Evaluate(context.Background(), ev)
		return
	}
	go e.evaluator.Evaluate(context.Background(), ev)
}

// Create starts a new process for the calling user in a program. The
// caller's role must allow the process type, the creation rate limit must
// have headroom, and the user must not already have a process in the
// program.
func (e *Engine) Create(ctx context.Context, actor model.Actor, programID, processType string) (*model.Process, error) {
	if processType == "" {
		return nil, fault.Validation("process type is required")
	}
	if !e.roles.CanStartType(actor.Role, processType) {
		return nil, fault.Forbidden("role %q may not start %q processes", actor.Role, processType)
	}

	program, err := e.store.GetProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	if len(program.AllowStartBy) > 0 && !e.roles.IsAdmin(actor.Role) && !contains(program.AllowStartBy, actor.Role) {
		return nil, fault.Forbidden("role %q may not start program %q", actor.Role, program.Slug)
	}

	if res := e.limiter.Check(actor.UserID, ActionCreate); !res.Allowed {
		return nil, res.Fault(ActionCreate)
	}

	if _, err := e.store.FindActiveProcess(ctx, actor.UserID, programID); err == nil {
		return nil, fault.Conflict("process already exists for user %s in program %s", actor.UserID, programID)
	}

	stages, err := e.orderedStages(ctx, program)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, fault.Validation("program %q has no stages", program.Slug)
	}

	p := &model.Process{
		ID:             uuid.New().String(),
		UserID:         actor.UserID,
		ProgramID:      programID,
		Type:           processType,
		Status:         model.StatusInProgress,
		CurrentStageID: stages[0].ID,
		Data:           map[string]map[string]any{},
	}
	// The store backs this with its own uniqueness guard, so a concurrent
	// create that slipped past the check above still fails with Conflict.
	if err := e.store.CreateProcess(ctx, p); err != nil {
		return nil, err
	}

	e.audit.Record(ctx, model.AuditEntry{
		UserID:     actor.UserID,
		Action:     "process_created",
		EntityType: "process",
		EntityID:   p.ID,
		Metadata:   map[string]any{"program_id": programID, "type": processType},
	})
	e.dispatch(automation.Event{
		Trigger:   model.TriggerProcessCreated,
		ProgramID: programID,
		ProcessID: p.ID,
		UserID:    actor.UserID,
		Data:      map[string]any{"type": processType, "status": p.Status},
	})
	return p, nil
}

// SubmitStage validates and records a submission for the process's current
// stage, then advances the stage pointer if a successor exists. The stage id
// may be the internal id or the authoring-time original id.
func (e *Engine) SubmitStage(ctx context.Context, actor model.Actor, processID, stageID string, data map[string]any) (*model.Process, error) {
	proc, err := e.store.GetProcess(ctx, processID)
	if err != nil {
		return nil, err
	}
	if proc.IsDeleted {
		return nil, fault.NotFound("process %s not found", processID)
	}
	if proc.UserID != actor.UserID && !e.roles.IsAdmin(actor.Role) {
		return nil, fault.Forbidden("only the process owner or an admin may submit stages")
	}

	current, err := e.store.GetStage(ctx, proc.CurrentStageID)
	if err != nil {
		return nil, err
	}
	if stageID != current.ID && (current.OriginalStageID == "" || stageID != current.OriginalStageID) {
		return nil, fault.Validation("Invalid stage configuration")
	}

	// All validation happens before any mutation: a bad submission leaves
	// both the data and the stage pointer untouched.
	if err := ValidateSubmission(current.Config.FormFields, data); err != nil {
		return nil, err
	}

	program, err := e.store.GetProgram(ctx, proc.ProgramID)
	if err != nil {
		return nil, err
	}
	stages, err := e.orderedStages(ctx, program)
	if err != nil {
		return nil, err
	}
	nextID := nextStageID(stages, current)

	prevStageID := proc.CurrentStageID
	updated, err := e.store.UpdateProcess(ctx, processID, func(p *model.Process) error {
		if p.CurrentStageID != current.ID {
			// Lost a race with another submission.
			return fault.Validation("Invalid stage configuration")
		}
		if p.Data == nil {
			p.Data = map[string]map[string]any{}
		}
		merged := p.Data[current.ID]
		if merged == nil {
			merged = map[string]any{}
		}
		for k, v := range data {
			merged[k] = v
		}
		p.Data[current.ID] = merged
		if nextID != "" {
			p.CurrentStageID = nextID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit.Record(ctx, model.AuditEntry{
		UserID:     actor.UserID,
		Action:     "stage_submitted",
		EntityType: "process",
		EntityID:   processID,
		Changes: map[string]any{
			"prev_stage_id": prevStageID,
			"new_stage_id":  updated.CurrentStageID,
		},
	})
	e.dispatch(automation.Event{
		Trigger:   model.TriggerStageSubmission,
		ProgramID: proc.ProgramID,
		ProcessID: processID,
		StageID:   current.ID,
		UserID:    proc.UserID,
		Data: map[string]any{
			"stage_id":   current.ID,
			"stage_name": current.Name,
			"submission": data,
			"decision":   InferDecision(data),
		},
	})
	return updated, nil
}

// UpdateStatus is the privileged status patch. It does not touch the stage
// pointer.
func (e *Engine) UpdateStatus(ctx context.Context, actor model.Actor, processID, status string) (*model.Process, error) {
	if !e.roles.Has(actor.Role, role.PermUpdateStatus) {
		return nil, fault.Forbidden("role %q may not update process status", actor.Role)
	}
	if status == "" {
		return nil, fault.Validation("status is required")
	}

	var prevStatus string
	updated, err := e.store.UpdateProcess(ctx, processID, func(p *model.Process) error {
		prevStatus = p.Status
		p.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit.Record(ctx, model.AuditEntry{
		UserID:     actor.UserID,
		Action:     "status_updated",
		EntityType: "process",
		EntityID:   processID,
		Changes:    map[string]any{"prev_status": prevStatus, "status": status},
	})
	e.dispatch(automation.Event{
		Trigger:   model.TriggerStatusChange,
		ProgramID: updated.ProgramID,
		ProcessID: processID,
		UserID:    updated.UserID,
		Data:      map[string]any{"status": status, "prev_status": prevStatus},
	})
	return updated, nil
}

// Get returns a process visible to the actor: the owner, an admin, or a role
// holding the view-all capability. Soft-deleted processes are gone from Get,
// matching SubmitStage; listing them back requires the IncludeDeleted filter.
func (e *Engine) Get(ctx context.Context, actor model.Actor, processID string) (*model.Process, error) {
	p, err := e.store.GetProcess(ctx, processID)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted {
		return nil, fault.NotFound("process %s not found", processID)
	}
	if p.UserID != actor.UserID && !e.roles.Has(actor.Role, role.PermViewAll) {
		return nil, fault.Forbidden("role %q may not view this process", actor.Role)
	}
	return p, nil
}

// List returns processes matching the filter. Callers without the view-all
// capability only ever see their own.
func (e *Engine) List(ctx context.Context, actor model.Actor, f store.ProcessFilter) ([]*model.Process, error) {
	if !e.roles.Has(actor.Role, role.PermViewAll) {
		f.UserID = actor.UserID
	}
	return e.store.ListProcesses(ctx, f)
}

// SoftDelete marks a process deleted. Processes are never hard-deleted; a
// deleted process frees the (user, program) slot for a fresh start.
func (e *Engine) SoftDelete(ctx context.Context, actor model.Actor, processID string) error {
	if !e.roles.Has(actor.Role, role.PermUpdateStatus) {
		return fault.Forbidden("role %q may not delete processes", actor.Role)
	}
	if _, err := e.store.UpdateProcess(ctx, processID, func(p *model.Process) error {
		p.IsDeleted = true
		return nil
	}); err != nil {
		return err
	}
	e.audit.Record(ctx, model.AuditEntry{
		UserID:     actor.UserID,
		Action:     "process_deleted",
		EntityType: "process",
		EntityID:   processID,
	})
	return nil
}

// orderedStages resolves the program's non-deleted stages in pipeline order.
func (e *Engine) orderedStages(ctx context.Context, program *model.Program) ([]*model.Stage, error) {
	all, err := e.store.ListStages(ctx, program.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Stage, len(all))
	for _, st := range all {
		byID[st.ID] = st
	}
	var ordered []*model.Stage
	for _, id := range program.StageIDs {
		if st, ok := byID[id]; ok && !st.IsDeleted {
			ordered = append(ordered, st)
		}
	}
	return ordered, nil
}

// nextStageID returns the successor of current in the pipeline, or "" when
// current is terminal: a "completed" stage or the last of the pipeline.
func nextStageID(stages []*model.Stage, current *model.Stage) string {
	if current.Type == model.StageTypeCompleted {
		return ""
	}
	for i, st := range stages {
		if st.ID == current.ID {
			if i+1 < len(stages) {
				return stages[i+1].ID
			}
			return ""
		}
	}
	return ""
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
