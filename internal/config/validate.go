package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedBackends is the set of valid store backend names.
var recognizedBackends = map[string]bool{
	"file":     true,
	"postgres": true,
}

// Validate checks a Config for structural and semantic errors. It returns a
// slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if !recognizedBackends[cfg.Store.Backend] {
		errs = append(errs, ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unrecognized backend %q (want file or postgres)", cfg.Store.Backend),
		})
	}
	if cfg.Store.Backend == "postgres" {
		pg := cfg.Store.Postgres
		if pg.Host == "" {
			errs = append(errs, ValidationError{Field: "store.postgres.host", Message: "is required"})
		}
		if pg.User == "" {
			errs = append(errs, ValidationError{Field: "store.postgres.user", Message: "is required"})
		}
		if pg.Name == "" {
			errs = append(errs, ValidationError{Field: "store.postgres.name", Message: "is required"})
		}
	}

	for action, lc := range cfg.Limits {
		if lc.Limit < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("limits.%s.limit", action),
				Message: "must not be negative",
			})
		}
		if _, err := time.ParseDuration(lc.Window); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("limits.%s.window", action),
				Message: fmt.Sprintf("invalid duration %q", lc.Window),
			})
		}
	}

	seenSlugs := make(map[string]bool)
	for i, r := range cfg.Roles {
		if r.Slug == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("roles[%d].slug", i),
				Message: "is required",
			})
			continue
		}
		if seenSlugs[r.Slug] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("roles[%d].slug", i),
				Message: fmt.Sprintf("duplicate role slug %q", r.Slug),
			})
		}
		seenSlugs[r.Slug] = true
	}

	seenTokens := make(map[string]bool)
	for i, t := range cfg.Tokens {
		if t.Token == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("tokens[%d].token", i),
				Message: "is required",
			})
		}
		if t.UserID == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("tokens[%d].user_id", i),
				Message: "is required",
			})
		}
		if t.Token != "" && seenTokens[t.Token] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("tokens[%d].token", i),
				Message: "duplicate token",
			})
		}
		seenTokens[t.Token] = true
	}

	return errs
}
