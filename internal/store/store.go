// Package store defines the document store contract the engine runs on.
// Implementations must serialize conflicting writes to the same document;
// every mutation goes through a read-modify-write callback so that holds for
// both the file and the Postgres backends.
package store

import (
	"context"

	"github.com/pathwayhr/pathway/internal/model"
)

// ProcessFilter narrows a process listing. Zero values match everything.
type ProcessFilter struct {
	UserID         string
	ProgramID      string
	Status         string
	IncludeDeleted bool
}

// Interface is the document store used by all engine services.
//
// Read methods return fault.NotFound errors for missing documents.
// CreateProgram enforces slug uniqueness and CreateProcess enforces the
// one-process-per-(user,program) guard, both returning fault.Conflict.
type Interface interface {
	CreateProgram(ctx context.Context, p *model.Program) error
	GetProgram(ctx context.Context, id string) (*model.Program, error)
	GetProgramBySlug(ctx context.Context, slug string) (*model.Program, error)
	ListPrograms(ctx context.Context) ([]*model.Program, error)
	UpdateProgram(ctx context.Context, id string, fn func(*model.Program) error) (*model.Program, error)

	CreateStage(ctx context.Context, s *model.Stage) error
	GetStage(ctx context.Context, id string) (*model.Stage, error)
	UpdateStage(ctx context.Context, id string, fn func(*model.Stage) error) (*model.Stage, error)
	// ListStages returns all stages of a program, soft-deleted included;
	// callers filter for traversal.
	ListStages(ctx context.Context, programID string) ([]*model.Stage, error)

	CreateTemplate(ctx context.Context, t *model.StageTemplate) error
	GetTemplate(ctx context.Context, id string) (*model.StageTemplate, error)
	ListTemplates(ctx context.Context) ([]*model.StageTemplate, error)

	CreateProcess(ctx context.Context, p *model.Process) error
	GetProcess(ctx context.Context, id string) (*model.Process, error)
	UpdateProcess(ctx context.Context, id string, fn func(*model.Process) error) (*model.Process, error)
	// FindActiveProcess returns the non-deleted process for the pair, or a
	// fault.NotFound error when there is none.
	FindActiveProcess(ctx context.Context, userID, programID string) (*model.Process, error)
	ListProcesses(ctx context.Context, f ProcessFilter) ([]*model.Process, error)

	CreateBlock(ctx context.Context, b *model.BlockInstance) error
	GetBlock(ctx context.Context, id string) (*model.BlockInstance, error)
	UpdateBlock(ctx context.Context, id string, fn func(*model.BlockInstance) error) (*model.BlockInstance, error)

	PutUser(ctx context.Context, u *model.UserProfile) error
	GetUser(ctx context.Context, id string) (*model.UserProfile, error)
	UpdateUser(ctx context.Context, id string, fn func(*model.UserProfile) error) (*model.UserProfile, error)

	AppendAudit(ctx context.Context, e *model.AuditEntry) error
	ListAudit(ctx context.Context, entityType, entityID string) ([]*model.AuditEntry, error)

	Close() error
}
