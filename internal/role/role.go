// Package role resolves role slugs to capability sets. Authorization
// decisions across the engine go through these capability checks; there is
// no separate clearance-threshold scheme.
package role

import "github.com/pathwayhr/pathway/internal/model"

// Capability names checked by engine services.
const (
	PermManagePrograms = "manage_programs"
	PermManageBlocks   = "manage_blocks"
	PermUpdateStatus   = "update_status"
	PermViewAll        = "view_all"
	PermViewInternal   = "view_internal"
)

// AdminSlug is the built-in administrator role.
const AdminSlug = "admin"

// adminRole is the hardcoded fallback allowance: when a slug is not
// configured, only the built-in admin keeps any capabilities.
var adminRole = model.Role{
	Slug:                "admin",
	AllowedProcessTypes: []string{"*"},
	Permissions: []string{
		PermManagePrograms,
		PermManageBlocks,
		PermUpdateStatus,
		PermViewAll,
		PermViewInternal,
	},
}

// Store looks up role definitions loaded from configuration.
type Store struct {
	roles map[string]model.Role
}

// NewStore builds a Store from configured role definitions. The admin role
// is always present; a configured "admin" entry overrides the built-in.
func NewStore(roles []model.Role) *Store {
	m := map[string]model.Role{AdminSlug: adminRole}
	for _, r := range roles {
		m[r.Slug] = r
	}
	return &Store{roles: m}
}

// Get returns the role for slug. Unknown slugs resolve to an empty role
// carrying no allowances.
func (s *Store) Get(slug string) model.Role {
	if r, ok := s.roles[slug]; ok {
		return r
	}
	return model.Role{Slug: slug}
}

// IsAdmin reports whether slug is the built-in admin role.
func (s *Store) IsAdmin(slug string) bool {
	return slug == AdminSlug
}

// Has reports whether the role holds the named capability. Admin holds all.
func (s *Store) Has(slug, permission string) bool {
	if s.IsAdmin(slug) {
		return true
	}
	for _, p := range s.Get(slug).Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CanStartType reports whether the role may instantiate processes of the
// given type. A "*" entry allows every type.
func (s *Store) CanStartType(slug, processType string) bool {
	if s.IsAdmin(slug) {
		return true
	}
	for _, t := range s.Get(slug).AllowedProcessTypes {
		if t == "*" || t == processType {
			return true
		}
	}
	return false
}
