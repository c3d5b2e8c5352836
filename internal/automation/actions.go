package automation

import (
	"context"
	"fmt"

	"github.com/pathwayhr/pathway/internal/model"
)

// sendEmail dispatches a templated notification to the event's user. The
// payload variables are merged over the event data, so hardcoded payload
// values win on key collision.
func (e *Evaluator) sendEmail(ctx context.Context, ev Event, action model.Action) error {
	user, err := e.store.GetUser(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	vars := map[string]any{"name": user.Name}
	for k, v := range ev.Data {
		vars[k] = v
	}
	if extra, ok := action.Payload["variables"].(map[string]any); ok {
		for k, v := range extra {
			vars[k] = v
		}
	}

	subject, _ := action.Payload["subject"].(string)
	template, _ := action.Payload["template"].(string)
	if template == "" {
		template = "default"
	}
	return e.notify.Send(ctx, user.Email, subject, template, vars)
}

// updateRole patches the user's system role and clearance level.
func (e *Evaluator) updateRole(ctx context.Context, ev Event, action model.Action) error {
	_, err := e.store.UpdateUser(ctx, ev.UserID, func(u *model.UserProfile) error {
		if v, ok := action.Payload["system_role"].(string); ok && v != "" {
			u.SystemRole = v
		}
		if v, ok := numberValue(action.Payload["clearance_level"]); ok {
			u.ClearanceLevel = v
		}
		return nil
	})
	return err
}

// updateStatus patches the user's profile status. Other profile fields are
// preserved: this is a merge, not a replace.
func (e *Evaluator) updateStatus(ctx context.Context, ev Event, action model.Action) error {
	status, ok := action.Payload["status"].(string)
	if !ok || status == "" {
		return fmt.Errorf("update_status payload has no status")
	}
	_, err := e.store.UpdateUser(ctx, ev.UserID, func(u *model.UserProfile) error {
		u.Status = status
		if extra, ok := action.Payload["profile"].(map[string]any); ok {
			if u.Profile == nil {
				u.Profile = map[string]any{}
			}
			for k, v := range extra {
				u.Profile[k] = v
			}
		}
		return nil
	})
	return err
}

// numberValue extracts an int from a payload value that may be an int or a
// JSON-decoded float64.
func numberValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
