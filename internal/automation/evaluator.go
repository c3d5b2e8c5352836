// Package automation evaluates declarative trigger→condition→action rules
// after engine state changes. Evaluation runs out of band once the
// triggering mutation has committed: rules are best-effort side effects,
// their failures are logged, never retried, and never surfaced to the caller
// of the state change.
package automation

import (
	"context"
	"fmt"

	"github.com/pathwayhr/pathway/internal/logging"
	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/notify"
	"github.com/pathwayhr/pathway/internal/store"
)

// Event is the context an engine state change hands to the evaluator.
type Event struct {
	Trigger   string
	ProgramID string
	ProcessID string
	StageID   string
	UserID    string
	Data      map[string]any
}

// ActionFunc executes one automation action against an event.
type ActionFunc func(ctx context.Context, ev Event, action model.Action) error

// Evaluator matches automations against events and runs their actions.
type Evaluator struct {
	store   store.Interface
	notify  notify.Dispatcher
	actions map[string]ActionFunc
	logger  *logging.Logger
}

// NewEvaluator creates an Evaluator with the built-in actions registered.
func NewEvaluator(st store.Interface, dispatcher notify.Dispatcher, logger *logging.Logger) *Evaluator {
	e := &Evaluator{
		store:   st,
		notify:  dispatcher,
		actions: make(map[string]ActionFunc),
		logger:  logger,
	}
	e.Register(model.ActionSendEmail, e.sendEmail)
	e.Register(model.ActionUpdateRole, e.updateRole)
	e.Register(model.ActionUpdateStatus, e.updateStatus)
	return e
}

// Register adds or replaces the executor for an action type.
func (e *Evaluator) Register(actionType string, fn ActionFunc) {
	e.actions[actionType] = fn
}

// Evaluate runs every matching automation for the event: program-level rules
// plus, when the event carries a stage, that stage's scoped rules. Actions
// run in array order, each fully applied before the next begins. Unknown
// action types and action failures are logged and skipped.
func (e *Evaluator) Evaluate(ctx context.Context, ev Event) {
	program, err := e.store.GetProgram(ctx, ev.ProgramID)
	if err != nil {
		e.logger.Debug("automation: program %s not loadable: %v", ev.ProgramID, err)
		return
	}

	rules := append([]model.Automation(nil), program.Automations...)
	if ev.StageID != "" {
		if stage, err := e.store.GetStage(ctx, ev.StageID); err == nil {
			rules = append(rules, stage.Automations...)
		}
	}
	if len(rules) == 0 {
		return
	}

	for _, rule := range rules {
		if rule.Trigger != ev.Trigger {
			continue
		}
		if !Matches(rule.Conditions, ev.Data) {
			continue
		}
		for _, action := range rule.Actions {
			fn, ok := e.actions[action.Type]
			if !ok {
				e.logger.Warn("automation: unknown action type %q, skipping", action.Type)
				continue
			}
			if err := fn(ctx, ev, action); err != nil {
				e.logger.Error("automation: action %s failed for process %s: %v", action.Type, ev.ProcessID, err)
			}
		}
	}
}

// Matches evaluates conditions as flat equality against the event data:
// every condition key must be present and equal. Missing keys and mismatches
// fail the rule; there is no partial or nested-path matching.
func Matches(conditions map[string]any, data map[string]any) bool {
	for key, want := range conditions {
		got, ok := data[key]
		if !ok || !looseEqual(got, want) {
			return false
		}
	}
	return true
}

// looseEqual compares values by their string rendering so JSON round-trips
// (e.g. int vs float64) don't break equality.
func looseEqual(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}
