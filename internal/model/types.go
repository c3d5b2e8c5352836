package model

import "time"

// Program is an ordered workflow template: a named pipeline of stages plus
// program-level automations and role-based view configuration.
type Program struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Slug         string                `json:"slug"`
	Type         string                `json:"type,omitempty"`
	IsActive     bool                  `json:"is_active"`
	StageIDs     []string              `json:"stage_ids"`
	Automations  []Automation          `json:"automations,omitempty"`
	ViewConfig   map[string]ViewConfig `json:"view_config,omitempty"`
	AllowStartBy []string              `json:"allow_start_by,omitempty"`
	StartDate    string                `json:"start_date,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// ViewConfig controls how a program surfaces on a role's dashboard.
type ViewConfig struct {
	Visible   bool   `json:"visible"`
	CardTitle string `json:"card_title,omitempty"`
}

// Stage is one step of a program's pipeline. A stage belongs to exactly one
// program. Soft-deleted stages are excluded from traversal and listing but
// kept on disk for the audit trail.
type Stage struct {
	ID              string                 `json:"id"`
	ProgramID       string                 `json:"program_id"`
	Name            string                 `json:"name"`
	Type            string                 `json:"type"`
	Config          StageConfig            `json:"config"`
	BlockIDs        []string               `json:"block_ids,omitempty"`
	Automations     []Automation           `json:"automations,omitempty"`
	RoleAccess      map[string]StageAccess `json:"role_access,omitempty"`
	OriginalStageID string                 `json:"original_stage_id,omitempty"`
	IsDeleted       bool                   `json:"is_deleted"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// StageAccess is per-role visibility/editability for a stage's content.
type StageAccess struct {
	CanView bool `json:"can_view"`
	CanEdit bool `json:"can_edit"`
}

// StageConfig holds the stage's optional form schema.
type StageConfig struct {
	FormFields []FormField `json:"form_fields,omitempty"`
}

// FormField is a single field in a stage's form schema.
type FormField struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// StageTemplate is a reusable stage definition that can be cloned into a
// program. Blocks referenced by a template are deep-copied on instantiation,
// never shared.
type StageTemplate struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Config      StageConfig  `json:"config"`
	BlockIDs    []string     `json:"block_ids,omitempty"`
	Automations []Automation `json:"automations,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Process is one user's live traversal of a program: a stage pointer plus
// accumulated per-stage submissions. The stage pointer and the status are
// independent dimensions. Processes are never hard-deleted.
type Process struct {
	ID             string                    `json:"id"`
	UserID         string                    `json:"user_id"`
	ProgramID      string                    `json:"program_id"`
	Type           string                    `json:"type"`
	Status         string                    `json:"status"`
	CurrentStageID string                    `json:"current_stage_id"`
	Data           map[string]map[string]any `json:"data"`
	IsDeleted      bool                      `json:"is_deleted"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// Automation is a declarative trigger→condition→action rule attached to a
// program (global) or a stage (scoped).
type Automation struct {
	Trigger    string         `json:"trigger"`
	Conditions map[string]any `json:"conditions,omitempty"`
	Actions    []Action       `json:"actions"`
}

// Action is a single automation side effect.
type Action struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// BlockInstance is a versioned configurable content/logic unit referenced by
// stages. Version increments on every config or name update. ParentID records
// lineage when a block is copied; copies never share mutable state with their
// source.
type BlockInstance struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Name      string         `json:"name,omitempty"`
	Config    map[string]any `json:"config"`
	Version   int            `json:"version"`
	ParentID  string         `json:"parent_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Role defines what a caller may do: which process types it may start and
// which named capabilities it holds.
type Role struct {
	Slug                 string   `json:"slug" yaml:"slug"`
	AllowedProcessTypes  []string `json:"allowed_process_types" yaml:"allowed_process_types"`
	Permissions          []string `json:"permissions" yaml:"permissions"`
	UIPermissions        []string `json:"ui_permissions,omitempty" yaml:"ui_permissions"`
	DefaultDashboardSlug string   `json:"default_dashboard_slug,omitempty" yaml:"default_dashboard_slug"`
}

// UserProfile is the mutable user record automations act on.
type UserProfile struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	Name           string         `json:"name"`
	SystemRole     string         `json:"system_role"`
	ClearanceLevel int            `json:"clearance_level"`
	Status         string         `json:"status,omitempty"`
	Profile        map[string]any `json:"profile,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Actor identifies the authenticated caller of an engine operation.
type Actor struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// AuditEntry records one state-changing engine operation.
type AuditEntry struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Changes    map[string]any `json:"changes,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
