package block

import (
	"context"
	"testing"

	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/role"
	"github.com/pathwayhr/pathway/internal/store/filestore"
)

func newTestService(t *testing.T) (*Service, *filestore.Store) {
	t.Helper()
	st, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewService(st, role.NewStore(nil), nil), st
}

func TestCreateStartsAtVersionOne(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	b, err := s.Create(ctx, model.BlockTypeBanner, "Welcome", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Version != 1 {
		t.Errorf("Version = %d, want 1", b.Version)
	}
	if b.ID == "" {
		t.Error("Create should assign an id")
	}

	if _, err := s.Create(ctx, "", "x", nil); !fault.IsKind(err, fault.KindValidation) {
		t.Errorf("empty type kind = %q, want validation", fault.KindOf(err))
	}
}

func TestUpdateBumpsVersion(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	b, err := s.Create(ctx, model.BlockTypeBanner, "Welcome", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatal(err)
	}

	name := "Renamed"
	updated, err := s.Update(ctx, b.ID, UpdatePatch{Name: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("Version = %d, want 2", updated.Version)
	}
	if updated.Name != "Renamed" {
		t.Errorf("Name = %q", updated.Name)
	}

	updated, err = s.Update(ctx, b.ID, UpdatePatch{Config: map[string]any{"text": "bye"}})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Version != 3 {
		t.Errorf("Version = %d, want 3", updated.Version)
	}
}

func TestFormConfigValidation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	bad := map[string]any{"fields": []any{map[string]any{"id": "email"}}}
	if _, err := s.Create(ctx, model.BlockTypeForm, "App Form", bad); !fault.IsKind(err, fault.KindValidation) {
		t.Errorf("field without label kind = %q, want validation", fault.KindOf(err))
	}

	good := map[string]any{"fields": []any{map[string]any{"id": "email", "label": "Email"}}}
	if _, err := s.Create(ctx, model.BlockTypeForm, "App Form", good); err != nil {
		t.Errorf("valid form config rejected: %v", err)
	}

	// Unregistered types are accepted as-is.
	if _, err := s.Create(ctx, "custom_widget", "W", map[string]any{"anything": true}); err != nil {
		t.Errorf("unregistered type rejected: %v", err)
	}
}

func TestForkIsolation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	orig, err := s.Create(ctx, model.BlockTypeBanner, "Banner", map[string]any{"nested": map[string]any{"text": "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Update(ctx, orig.ID, UpdatePatch{}); err != nil {
		t.Fatal(err)
	}

	copy, err := s.Fork(ctx, orig.ID)
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}
	if copy.ID == orig.ID {
		t.Error("fork should get a new id")
	}
	if copy.ParentID != orig.ID {
		t.Errorf("ParentID = %q, want %q", copy.ParentID, orig.ID)
	}
	if copy.Version != 1 {
		t.Errorf("fork Version = %d, want 1", copy.Version)
	}

	// Mutating the copy must not touch the original, and vice versa.
	if _, err := s.Update(ctx, copy.ID, UpdatePatch{Config: map[string]any{"nested": map[string]any{"text": "changed"}}}); err != nil {
		t.Fatal(err)
	}
	reloaded, _ := s.Get(ctx, orig.ID)
	if nested := reloaded.Config["nested"].(map[string]any); nested["text"] != "hi" {
		t.Errorf("original mutated through fork: %v", nested)
	}

	if _, err := s.Update(ctx, orig.ID, UpdatePatch{Config: map[string]any{"nested": map[string]any{"text": "orig2"}}}); err != nil {
		t.Fatal(err)
	}
	copyReloaded, _ := s.Get(ctx, copy.ID)
	if nested := copyReloaded.Config["nested"].(map[string]any); nested["text"] != "changed" {
		t.Errorf("fork mutated through original: %v", nested)
	}
}

func TestValidatePasscode(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	gate, err := s.Create(ctx, model.BlockTypeAccessGate, "Gate", map[string]any{"passcode": "sesame"})
	if err != nil {
		t.Fatal(err)
	}

	ok, err := s.ValidatePasscode(ctx, gate.ID, "sesame")
	if err != nil || !ok {
		t.Errorf("correct passcode: ok=%t err=%v", ok, err)
	}
	ok, err = s.ValidatePasscode(ctx, gate.ID, "wrong")
	if err != nil || ok {
		t.Errorf("wrong passcode: ok=%t err=%v", ok, err)
	}

	// A gate with no passcode is open.
	open, err := s.Create(ctx, model.BlockTypeAccessGate, "Open Gate", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	ok, err = s.ValidatePasscode(ctx, open.ID, "anything")
	if err != nil || !ok {
		t.Errorf("open gate: ok=%t err=%v", ok, err)
	}

	// Only access gates have passcodes.
	banner, _ := s.Create(ctx, model.BlockTypeBanner, "B", nil)
	if _, err := s.ValidatePasscode(ctx, banner.ID, "x"); !fault.IsKind(err, fault.KindValidation) {
		t.Errorf("non-gate kind = %q, want validation", fault.KindOf(err))
	}
}

func TestStageBlocksRedaction(t *testing.T) {
	s, st := newTestService(t)
	ctx := context.Background()

	rubric, err := s.Create(ctx, model.BlockTypeReviewRubric, "Rubric", map[string]any{"criteria": []any{"depth"}})
	if err != nil {
		t.Fatal(err)
	}
	gate, err := s.Create(ctx, model.BlockTypeAccessGate, "Gate", map[string]any{"passcode": "sesame", "hint": "plant"})
	if err != nil {
		t.Fatal(err)
	}

	stage := &model.Stage{
		ID:        "s1",
		ProgramID: "p1",
		Name:      "Review",
		Type:      model.StageTypeForm,
		BlockIDs:  []string{rubric.ID, gate.ID, "missing-block"},
		RoleAccess: map[string]model.StageAccess{
			"hidden":   {CanView: false},
			"readonly": {CanView: true, CanEdit: false},
		},
	}
	if err := st.CreateStage(ctx, stage); err != nil {
		t.Fatal(err)
	}

	// Unauthenticated viewers see nothing.
	views, err := s.StageBlocks(ctx, "s1", nil)
	if err != nil || len(views) != 0 {
		t.Errorf("nil viewer: %v, %v", views, err)
	}

	// A role denied viewing sees nothing.
	views, err = s.StageBlocks(ctx, "s1", &model.Actor{UserID: "u1", Role: "hidden"})
	if err != nil || len(views) != 0 {
		t.Errorf("hidden role: %v, %v", views, err)
	}

	// A plain viewer gets the restricted marker for internal blocks and no
	// passcode on the gate; the missing block is skipped.
	views, err = s.StageBlocks(ctx, "s1", &model.Actor{UserID: "u1", Role: "readonly"})
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("len = %d, want 2", len(views))
	}
	if views[0].Config["restricted"] != true {
		t.Errorf("internal block not redacted: %v", views[0].Config)
	}
	if _, leaked := views[1].Config["passcode"]; leaked {
		t.Error("passcode leaked to non-admin viewer")
	}
	if views[1].Config["hint"] != "plant" {
		t.Errorf("non-secret gate config stripped: %v", views[1].Config)
	}
	if !views[0].ReadOnly || !views[1].ReadOnly {
		t.Error("can_edit=false should mark views read-only")
	}

	// Admin sees everything.
	views, err = s.StageBlocks(ctx, "s1", &model.Actor{UserID: "root", Role: role.AdminSlug})
	if err != nil {
		t.Fatal(err)
	}
	if views[0].Config["restricted"] == true {
		t.Error("admin should see internal config")
	}
	if views[1].Config["passcode"] != "sesame" {
		t.Error("admin should see the passcode")
	}
	if views[0].ReadOnly {
		t.Error("admin views should not be read-only")
	}
}

func TestRedactionDoesNotMutateStoredGate(t *testing.T) {
	s, st := newTestService(t)
	ctx := context.Background()

	gate, err := s.Create(ctx, model.BlockTypeAccessGate, "Gate", map[string]any{"passcode": "sesame"})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.CreateStage(ctx, &model.Stage{ID: "s1", ProgramID: "p1", Name: "S", BlockIDs: []string{gate.ID}}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.StageBlocks(ctx, "s1", &model.Actor{UserID: "u1", Role: "viewer"}); err != nil {
		t.Fatal(err)
	}

	reloaded, _ := s.Get(ctx, gate.ID)
	if reloaded.Config["passcode"] != "sesame" {
		t.Error("redaction mutated the stored config")
	}
}
