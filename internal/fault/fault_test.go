package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestConstructorsClassify(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{Unauthorized("no token"), KindUnauthorized},
		{Forbidden("role %q may not", "guest"), KindForbidden},
		{NotFound("program %s not found", "p1"), KindNotFound},
		{Conflict("slug taken"), KindConflict},
		{Validation("name is required"), KindValidation},
		{RateLimited("too many requests"), KindRateLimited},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.kind {
			t.Errorf("KindOf(%v) = %q, want %q", c.err, got, c.kind)
		}
	}
}

func TestKindOfWrappedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("process %s not found", "x"))
	if !IsKind(err, KindNotFound) {
		t.Errorf("wrapped error lost its classification: %v", err)
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain error) = %q, want empty", got)
	}
	if KindOf(nil) != "" {
		t.Error("KindOf(nil) should be empty")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Validation("%s is required", "Email")
	want := "validation: Email is required"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
