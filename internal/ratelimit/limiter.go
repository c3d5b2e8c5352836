// Package ratelimit implements per-user, per-action fixed windows checked
// before expensive creations (e.g. 10 process creations per hour).
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/pathwayhr/pathway/internal/fault"
)

// Rule is one action's window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Result reports the outcome of a limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	start time.Time
	count int
}

// Limiter tracks fixed windows in memory. Actions without a configured rule
// are unlimited.
type Limiter struct {
	mu      sync.Mutex
	rules   map[string]Rule
	windows map[string]*window
	now     func() time.Time
}

// New creates a Limiter with the given per-action rules.
func New(rules map[string]Rule) *Limiter {
	return &Limiter{
		rules:   rules,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// SetNow overrides the clock (for testing).
func (l *Limiter) SetNow(now func() time.Time) {
	l.now = now
}

// Check consumes one slot for (userID, action). When the window is
// exhausted it returns Allowed=false with the window reset time; the caller
// converts that into a RateLimited fault.
func (l *Limiter) Check(userID, action string) Result {
	rule, ok := l.rules[action]
	if !ok || rule.Limit <= 0 {
		return Result{Allowed: true, Remaining: -1}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := userID + "|" + action
	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= rule.Window {
		w = &window{start: now}
		l.windows[key] = w
	}
	resetAt := w.start.Add(rule.Window)
	if w.count >= rule.Limit {
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}
	w.count++
	return Result{Allowed: true, Remaining: rule.Limit - w.count, ResetAt: resetAt}
}

// Fault builds the error surfaced to callers when a check is denied.
func (r Result) Fault(action string) error {
	return fault.RateLimited("too many %s requests, retry after %s",
		action, r.ResetAt.UTC().Format(time.RFC3339))
}

// String implements a human-readable summary used in logs.
func (r Result) String() string {
	if r.Remaining < 0 {
		return "unlimited"
	}
	return fmt.Sprintf("remaining=%d reset=%s", r.Remaining, r.ResetAt.UTC().Format(time.RFC3339))
}
