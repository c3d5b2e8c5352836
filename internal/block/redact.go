package block

import (
	"context"

	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/role"
)

// View is a block as one viewer is allowed to see it.
type View struct {
	model.BlockInstance
	ReadOnly bool `json:"read_only"`
}

// restrictedMarker replaces the config of internal-only blocks for
// non-privileged viewers.
var restrictedMarker = map[string]any{"restricted": true}

// StageBlocks returns the blocks of a stage filtered and redacted for the
// viewer. An unauthenticated viewer (nil actor) gets an empty list. A role
// whose stage access has can_view=false gets an empty list. Internal-only
// block types have their config replaced with an opaque marker unless the
// viewer may see internal content, and access gate passcodes are stripped
// for non-admin viewers.
func (s *Service) StageBlocks(ctx context.Context, stageID string, viewer *model.Actor) ([]View, error) {
	if viewer == nil {
		return []View{}, nil
	}
	stage, err := s.store.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}

	admin := s.roles.IsAdmin(viewer.Role)
	readOnly := false
	if access, ok := stage.RoleAccess[viewer.Role]; ok && !admin {
		if !access.CanView {
			return []View{}, nil
		}
		readOnly = !access.CanEdit
	}

	views := make([]View, 0, len(stage.BlockIDs))
	for _, id := range stage.BlockIDs {
		b, err := s.store.GetBlock(ctx, id)
		if err != nil {
			s.logger.Warn("stage %s references missing block %s: %v", stageID, id, err)
			continue
		}
		views = append(views, View{
			BlockInstance: s.redact(*b, viewer.Role, admin),
			ReadOnly:      readOnly,
		})
	}
	return views, nil
}

// redact returns a copy of the block with its config reduced to what the
// viewer may see.
func (s *Service) redact(b model.BlockInstance, roleSlug string, admin bool) model.BlockInstance {
	privileged := admin || s.roles.Has(roleSlug, role.PermViewInternal)

	if model.InternalBlockTypes[b.Type] && !privileged {
		b.Config = restrictedMarker
		return b
	}
	if b.Type == model.BlockTypeAccessGate && !admin {
		config, err := deepCopyConfig(b.Config)
		if err != nil {
			config = map[string]any{}
		}
		delete(config, "passcode")
		b.Config = config
	}
	return b
}
