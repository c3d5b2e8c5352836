package process

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/model"
)

// emailPattern is a deliberately simple local@domain.tld shape check, not an
// RFC 5322 parser.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateSubmission checks submitted data against a stage's form schema.
// It fails on the first violation, naming the offending field's label, and
// runs before any mutation so a bad submission never changes process state.
// Type-specific checks apply only when a value is present.
func ValidateSubmission(fields []model.FormField, data map[string]any) error {
	for _, f := range fields {
		raw, ok := data[f.ID]
		present := ok && raw != nil && fmt.Sprint(raw) != ""
		if !present {
			if f.Required {
				return fault.Validation("%s is required", f.Label)
			}
			continue
		}
		switch f.Type {
		case model.FieldTypeEmail:
			if s, ok := raw.(string); !ok || !emailPattern.MatchString(s) {
				return fault.Validation("%s must be a valid email address", f.Label)
			}
		case model.FieldTypeNumber:
			if !isNumeric(raw) {
				return fault.Validation("%s must be a number", f.Label)
			}
		}
	}
	return nil
}

func isNumeric(v any) bool {
	switch n := v.(type) {
	case int, int32, int64, float32, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(n, 64)
		return err == nil
	default:
		return false
	}
}

// InferDecision scans submitted field values for the literal accept/decline
// markers. This is a value heuristic, not a schema-declared decision field:
// any field whose value is exactly "accept" or "decline" sets the decision,
// with accept taking precedence.
func InferDecision(data map[string]any) string {
	decision := ""
	for _, v := range data {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch s {
		case model.DecisionAccept:
			return model.DecisionAccept
		case model.DecisionDecline:
			decision = model.DecisionDecline
		}
	}
	return decision
}
