package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/store/filestore"
)

type sentMail struct {
	to       string
	subject  string
	template string
	payload  map[string]any
}

type captureDispatcher struct {
	sent []sentMail
	err  error
}

func (d *captureDispatcher) Send(_ context.Context, to, subject, template string, payload map[string]any) error {
	d.sent = append(d.sent, sentMail{to: to, subject: subject, template: template, payload: payload})
	return d.err
}

func newTestEvaluator(t *testing.T) (*Evaluator, *filestore.Store, *captureDispatcher) {
	t.Helper()
	st, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	d := &captureDispatcher{}
	return NewEvaluator(st, d, nil), st, d
}

func seedProgram(t *testing.T, st *filestore.Store, automations []model.Automation) *model.Program {
	t.Helper()
	p := &model.Program{ID: "p1", Name: "P", Slug: "p", Automations: automations}
	if err := st.CreateProgram(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func seedUser(t *testing.T, st *filestore.Store) {
	t.Helper()
	if err := st.PutUser(context.Background(), &model.UserProfile{
		ID: "u1", Email: "ada@example.com", Name: "Ada", Status: "invited",
		Profile: map[string]any{"team": "platform"},
	}); err != nil {
		t.Fatal(err)
	}
}

func TestMatches(t *testing.T) {
	cases := []struct {
		name       string
		conditions map[string]any
		data       map[string]any
		want       bool
	}{
		{"no conditions", nil, map[string]any{"x": 1}, true},
		{"equal", map[string]any{"decision": "accept"}, map[string]any{"decision": "accept"}, true},
		{"mismatch", map[string]any{"decision": "accept"}, map[string]any{"decision": "decline"}, false},
		{"missing key", map[string]any{"decision": "accept"}, map[string]any{}, false},
		{"loose numeric", map[string]any{"score": 3}, map[string]any{"score": 3.0}, true},
		{"all must hold", map[string]any{"a": "1", "b": "2"}, map[string]any{"a": "1", "b": "x"}, false},
	}
	for _, c := range cases {
		if got := Matches(c.conditions, c.data); got != c.want {
			t.Errorf("%s: Matches = %t, want %t", c.name, got, c.want)
		}
	}
}

func TestEvaluateRunsMatchingRules(t *testing.T) {
	e, st, d := newTestEvaluator(t)
	seedUser(t, st)
	seedProgram(t, st, []model.Automation{
		{
			Trigger:    model.TriggerStageSubmission,
			Conditions: map[string]any{"decision": "accept"},
			Actions: []model.Action{
				{Type: model.ActionUpdateStatus, Payload: map[string]any{"status": "active"}},
				{Type: model.ActionSendEmail, Payload: map[string]any{"subject": "Welcome", "template": "welcome"}},
			},
		},
		{
			Trigger: model.TriggerStatusChange,
			Actions: []model.Action{{Type: model.ActionSendEmail, Payload: map[string]any{"subject": "nope"}}},
		},
	})

	e.Evaluate(context.Background(), Event{
		Trigger:   model.TriggerStageSubmission,
		ProgramID: "p1",
		ProcessID: "x1",
		UserID:    "u1",
		Data:      map[string]any{"decision": "accept"},
	})

	// Status action ran first, email second, mismatched trigger skipped.
	user, err := st.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if user.Status != "active" {
		t.Errorf("Status = %q, want active", user.Status)
	}
	if len(d.sent) != 1 {
		t.Fatalf("sent = %d mails, want 1", len(d.sent))
	}
	if d.sent[0].to != "ada@example.com" || d.sent[0].template != "welcome" {
		t.Errorf("mail = %+v", d.sent[0])
	}
}

func TestEvaluateConditionMismatchSkips(t *testing.T) {
	e, st, d := newTestEvaluator(t)
	seedUser(t, st)
	seedProgram(t, st, []model.Automation{{
		Trigger:    model.TriggerStageSubmission,
		Conditions: map[string]any{"decision": "accept"},
		Actions:    []model.Action{{Type: model.ActionSendEmail}},
	}})

	e.Evaluate(context.Background(), Event{
		Trigger:   model.TriggerStageSubmission,
		ProgramID: "p1",
		UserID:    "u1",
		Data:      map[string]any{"decision": "decline"},
	})
	if len(d.sent) != 0 {
		t.Errorf("mismatched condition still sent %d mails", len(d.sent))
	}
}

func TestEvaluateStageScopedRules(t *testing.T) {
	e, st, d := newTestEvaluator(t)
	seedUser(t, st)
	seedProgram(t, st, nil)
	if err := st.CreateStage(context.Background(), &model.Stage{
		ID: "s1", ProgramID: "p1", Name: "Offer",
		Automations: []model.Automation{{
			Trigger: model.TriggerStageSubmission,
			Actions: []model.Action{{Type: model.ActionSendEmail, Payload: map[string]any{"subject": "Offer sent"}}},
		}},
	}); err != nil {
		t.Fatal(err)
	}

	e.Evaluate(context.Background(), Event{
		Trigger:   model.TriggerStageSubmission,
		ProgramID: "p1",
		StageID:   "s1",
		UserID:    "u1",
	})
	if len(d.sent) != 1 || d.sent[0].subject != "Offer sent" {
		t.Errorf("stage-scoped rule not run: %v", d.sent)
	}

	// Without the stage id the scoped rule stays dormant.
	d.sent = nil
	e.Evaluate(context.Background(), Event{
		Trigger:   model.TriggerStageSubmission,
		ProgramID: "p1",
		UserID:    "u1",
	})
	if len(d.sent) != 0 {
		t.Error("stage rule ran without a stage event")
	}
}

func TestEvaluateUnknownActionAndFailureContinue(t *testing.T) {
	e, st, d := newTestEvaluator(t)
	seedUser(t, st)
	seedProgram(t, st, []model.Automation{{
		Trigger: model.TriggerProcessCreated,
		Actions: []model.Action{
			{Type: "launch_rocket"},
			{Type: model.ActionUpdateStatus, Payload: map[string]any{}}, // fails: no status
			{Type: model.ActionSendEmail, Payload: map[string]any{"subject": "still here"}},
		},
	}})

	e.Evaluate(context.Background(), Event{
		Trigger:   model.TriggerProcessCreated,
		ProgramID: "p1",
		UserID:    "u1",
	})
	if len(d.sent) != 1 {
		t.Errorf("later actions should run after skips and failures, sent = %d", len(d.sent))
	}
}

func TestEvaluateMissingProgramIsNoop(t *testing.T) {
	e, _, d := newTestEvaluator(t)
	e.Evaluate(context.Background(), Event{Trigger: model.TriggerProcessCreated, ProgramID: "ghost"})
	if len(d.sent) != 0 {
		t.Error("missing program should short-circuit")
	}
}

func TestSendEmailVariableMerge(t *testing.T) {
	e, st, d := newTestEvaluator(t)
	seedUser(t, st)
	seedProgram(t, st, []model.Automation{{
		Trigger: model.TriggerStageSubmission,
		Actions: []model.Action{{
			Type: model.ActionSendEmail,
			Payload: map[string]any{
				"subject":   "Hello",
				"variables": map[string]any{"stage_name": "Override"},
			},
		}},
	}})

	e.Evaluate(context.Background(), Event{
		Trigger:   model.TriggerStageSubmission,
		ProgramID: "p1",
		UserID:    "u1",
		Data:      map[string]any{"stage_name": "Offer", "score": 7},
	})
	if len(d.sent) != 1 {
		t.Fatal("no mail sent")
	}
	vars := d.sent[0].payload
	if vars["name"] != "Ada" {
		t.Errorf("vars[name] = %v, want user name", vars["name"])
	}
	if vars["score"] != 7 {
		t.Errorf("vars[score] = %v, want event data", vars["score"])
	}
	if vars["stage_name"] != "Override" {
		t.Errorf("payload variables should win collisions, got %v", vars["stage_name"])
	}
	if d.sent[0].template != "default" {
		t.Errorf("template = %q, want default", d.sent[0].template)
	}
}

func TestUpdateRoleAction(t *testing.T) {
	e, st, _ := newTestEvaluator(t)
	seedUser(t, st)
	seedProgram(t, st, []model.Automation{{
		Trigger: model.TriggerStatusChange,
		Actions: []model.Action{{
			Type: model.ActionUpdateRole,
			// float64 mirrors what JSON decoding produces.
			Payload: map[string]any{"system_role": "member", "clearance_level": float64(2)},
		}},
	}})

	e.Evaluate(context.Background(), Event{Trigger: model.TriggerStatusChange, ProgramID: "p1", UserID: "u1"})

	user, _ := st.GetUser(context.Background(), "u1")
	if user.SystemRole != "member" || user.ClearanceLevel != 2 {
		t.Errorf("user = role %q clearance %d, want member/2", user.SystemRole, user.ClearanceLevel)
	}
}

func TestUpdateStatusMergesProfile(t *testing.T) {
	e, st, _ := newTestEvaluator(t)
	seedUser(t, st)
	seedProgram(t, st, []model.Automation{{
		Trigger: model.TriggerStatusChange,
		Actions: []model.Action{{
			Type:    model.ActionUpdateStatus,
			Payload: map[string]any{"status": "active", "profile": map[string]any{"badge": "gold"}},
		}},
	}})

	e.Evaluate(context.Background(), Event{Trigger: model.TriggerStatusChange, ProgramID: "p1", UserID: "u1"})

	user, _ := st.GetUser(context.Background(), "u1")
	if user.Status != "active" {
		t.Errorf("Status = %q", user.Status)
	}
	if user.Profile["badge"] != "gold" {
		t.Errorf("profile not merged: %v", user.Profile)
	}
	if user.Profile["team"] != "platform" {
		t.Errorf("existing profile keys lost: %v", user.Profile)
	}
}

func TestRegisterCustomAction(t *testing.T) {
	e, st, _ := newTestEvaluator(t)
	seedProgram(t, st, []model.Automation{{
		Trigger: model.TriggerProcessCreated,
		Actions: []model.Action{{Type: "custom"}},
	}})

	var ran bool
	e.Register("custom", func(ctx context.Context, ev Event, action model.Action) error {
		ran = true
		return errors.New("logged, not surfaced")
	})

	e.Evaluate(context.Background(), Event{Trigger: model.TriggerProcessCreated, ProgramID: "p1"})
	if !ran {
		t.Error("custom action not invoked")
	}
}
