package ratelimit

import (
	"strings"
	"testing"
	"time"

	"github.com/pathwayhr/pathway/internal/fault"
)

func TestCheckConsumesWindow(t *testing.T) {
	l := New(map[string]Rule{"create": {Limit: 2, Window: time.Hour}})

	r1 := l.Check("u1", "create")
	if !r1.Allowed || r1.Remaining != 1 {
		t.Fatalf("first check: allowed=%t remaining=%d, want true/1", r1.Allowed, r1.Remaining)
	}
	r2 := l.Check("u1", "create")
	if !r2.Allowed || r2.Remaining != 0 {
		t.Fatalf("second check: allowed=%t remaining=%d, want true/0", r2.Allowed, r2.Remaining)
	}
	r3 := l.Check("u1", "create")
	if r3.Allowed {
		t.Fatal("third check should be denied")
	}
}

func TestWindowsArePerUserAndAction(t *testing.T) {
	l := New(map[string]Rule{"create": {Limit: 1, Window: time.Hour}})

	if r := l.Check("u1", "create"); !r.Allowed {
		t.Fatal("u1 first check denied")
	}
	if r := l.Check("u2", "create"); !r.Allowed {
		t.Error("u2 should have its own window")
	}
	if r := l.Check("u1", "other"); !r.Allowed {
		t.Error("unconfigured action should be unlimited")
	}
}

func TestWindowResets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(map[string]Rule{"create": {Limit: 1, Window: time.Hour}})
	l.SetNow(func() time.Time { return now })

	if r := l.Check("u1", "create"); !r.Allowed {
		t.Fatal("first check denied")
	}
	if r := l.Check("u1", "create"); r.Allowed {
		t.Fatal("window should be exhausted")
	}

	now = now.Add(time.Hour)
	if r := l.Check("u1", "create"); !r.Allowed {
		t.Error("check after window elapsed should be allowed")
	}
}

func TestDeniedResultFault(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(map[string]Rule{"create": {Limit: 1, Window: time.Hour}})
	l.SetNow(func() time.Time { return now })

	l.Check("u1", "create")
	r := l.Check("u1", "create")
	if r.Allowed {
		t.Fatal("expected denial")
	}

	err := r.Fault("create")
	if !fault.IsKind(err, fault.KindRateLimited) {
		t.Errorf("Fault() kind = %q, want rate_limited", fault.KindOf(err))
	}
	if !strings.Contains(err.Error(), "2026-03-01T13:00:00Z") {
		t.Errorf("Fault() should carry the reset time, got: %v", err)
	}
}

func TestUnlimitedResultString(t *testing.T) {
	l := New(nil)
	r := l.Check("u1", "anything")
	if r.String() != "unlimited" {
		t.Errorf("String() = %q, want unlimited", r.String())
	}
}
