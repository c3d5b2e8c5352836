package model

// Process status constants. Status is a free-form string; these are the
// values the engine itself sets or that ship with the default automations.
const (
	StatusInProgress = "in_progress"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
)

// Automation trigger constants.
const (
	TriggerProcessCreated  = "process_created"
	TriggerStageSubmission = "stage_submission"
	TriggerStatusChange    = "status_change"
)

// Automation action type constants.
const (
	ActionSendEmail    = "send_email"
	ActionUpdateRole   = "update_role"
	ActionUpdateStatus = "update_status"
)

// Built-in stage type constants. Custom types are allowed; "completed" marks
// the terminal stage of a pipeline.
const (
	StageTypeStatic    = "static"
	StageTypeForm      = "form"
	StageTypeInterview = "interview"
	StageTypeAgreement = "agreement"
	StageTypeCompleted = "completed"
)

// Form field type constants with type-specific validation.
const (
	FieldTypeEmail  = "email"
	FieldTypeNumber = "number"
)

// Block type constants.
const (
	BlockTypeForm         = "form"
	BlockTypeScheduler    = "scheduler"
	BlockTypeBanner       = "banner"
	BlockTypeAccessGate   = "access_gate"
	BlockTypeReviewRubric = "review_rubric"
	BlockTypeDecisionGate = "decision_gate"
	BlockTypeAutoScore    = "auto_score"
)

// InternalBlockTypes lists block types whose config is visible only to
// privileged viewers; everyone else sees an opaque marker.
var InternalBlockTypes = map[string]bool{
	BlockTypeReviewRubric: true,
	BlockTypeDecisionGate: true,
	BlockTypeAutoScore:    true,
}

// ProgramTypes is the set of recognized program type values.
var ProgramTypes = map[string]bool{
	"recruitment":   true,
	"promotion":     true,
	"reimbursement": true,
	"incident":      true,
	"onboarding":    true,
}

// Decision constants inferred from submitted stage values.
const (
	DecisionAccept  = "accept"
	DecisionDecline = "decline"
)
