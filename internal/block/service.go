// Package block manages block instances: versioned content/logic units
// referenced by stages. Copies (template instantiation, fork, duplicate)
// are deep copies and never share mutable state with their source.
package block

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/logging"
	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/role"
	"github.com/pathwayhr/pathway/internal/store"
)

// ConfigValidator checks a block config for one block type.
type ConfigValidator func(config map[string]any) error

// Service implements block operations.
type Service struct {
	store      store.Interface
	roles      *role.Store
	validators map[string]ConfigValidator
	logger     *logging.Logger
}

// NewService creates a Service with the built-in per-type validators
// registered. Validation is opt-in per type: unregistered types are accepted
// with a warning.
func NewService(st store.Interface, roles *role.Store, logger *logging.Logger) *Service {
	s := &Service{
		store:      st,
		roles:      roles,
		validators: make(map[string]ConfigValidator),
		logger:     logger,
	}
	s.RegisterValidator(model.BlockTypeForm, validateFormConfig)
	s.RegisterValidator(model.BlockTypeAccessGate, validateAccessGateConfig)
	return s
}

// RegisterValidator registers or replaces the config validator for a type.
func (s *Service) RegisterValidator(blockType string, v ConfigValidator) {
	s.validators[blockType] = v
}

func (s *Service) validateConfig(blockType string, config map[string]any) error {
	v, ok := s.validators[blockType]
	if !ok {
		s.logger.Warn("no config validator registered for block type %q, accepting as-is", blockType)
		return nil
	}
	if err := v(config); err != nil {
		return fault.Validation("invalid %s config: %v", blockType, err)
	}
	return nil
}

// Create validates and persists a new block instance at version 1.
func (s *Service) Create(ctx context.Context, blockType, name string, config map[string]any) (*model.BlockInstance, error) {
	if blockType == "" {
		return nil, fault.Validation("block type is required")
	}
	if config == nil {
		config = map[string]any{}
	}
	if err := s.validateConfig(blockType, config); err != nil {
		return nil, err
	}
	b := &model.BlockInstance{
		ID:      uuid.New().String(),
		Type:    blockType,
		Name:    name,
		Config:  config,
		Version: 1,
	}
	if err := s.store.CreateBlock(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns a block instance by id.
func (s *Service) Get(ctx context.Context, id string) (*model.BlockInstance, error) {
	return s.store.GetBlock(ctx, id)
}

// UpdatePatch is a partial block update. Nil fields are left untouched.
type UpdatePatch struct {
	Name   *string
	Config map[string]any
}

// Update applies a patch and bumps the version.
func (s *Service) Update(ctx context.Context, id string, patch UpdatePatch) (*model.BlockInstance, error) {
	return s.store.UpdateBlock(ctx, id, func(b *model.BlockInstance) error {
		if patch.Config != nil {
			if err := s.validateConfig(b.Type, patch.Config); err != nil {
				return err
			}
			b.Config = patch.Config
		}
		if patch.Name != nil {
			b.Name = *patch.Name
		}
		b.Version++
		return nil
	})
}

// Fork creates an independent copy of a block: new id, version 1, parent
// lineage recorded, config deep-copied. The original is untouched.
func (s *Service) Fork(ctx context.Context, id string) (*model.BlockInstance, error) {
	src, err := s.store.GetBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	config, err := deepCopyConfig(src.Config)
	if err != nil {
		return nil, err
	}
	copy := &model.BlockInstance{
		ID:       uuid.New().String(),
		Type:     src.Type,
		Name:     src.Name,
		Config:   config,
		Version:  1,
		ParentID: src.ID,
	}
	if err := s.store.CreateBlock(ctx, copy); err != nil {
		return nil, err
	}
	return copy, nil
}

// Duplicate is a fork kept under its own name for pipeline editors that
// copy a block in place.
func (s *Service) Duplicate(ctx context.Context, id string) (*model.BlockInstance, error) {
	return s.Fork(ctx, id)
}

// ValidatePasscode checks input against an access gate's configured
// passcode. A gate with no passcode configured is open: any input passes.
func (s *Service) ValidatePasscode(ctx context.Context, blockID, input string) (bool, error) {
	b, err := s.store.GetBlock(ctx, blockID)
	if err != nil {
		return false, err
	}
	if b.Type != model.BlockTypeAccessGate {
		return false, fault.Validation("block %s is not an access gate", blockID)
	}
	passcode, _ := b.Config["passcode"].(string)
	if passcode == "" {
		return true, nil
	}
	return input == passcode, nil
}

func deepCopyConfig(config map[string]any) (map[string]any, error) {
	if config == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("copy config: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("copy config: %w", err)
	}
	return out, nil
}

// --- built-in validators ---

func validateFormConfig(config map[string]any) error {
	fields, ok := config["fields"]
	if !ok {
		return nil
	}
	list, ok := fields.([]any)
	if !ok {
		return fmt.Errorf("fields must be a list")
	}
	for i, raw := range list {
		field, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("fields[%d] must be an object", i)
		}
		if id, _ := field["id"].(string); id == "" {
			return fmt.Errorf("fields[%d] is missing an id", i)
		}
		if label, _ := field["label"].(string); label == "" {
			return fmt.Errorf("fields[%d] is missing a label", i)
		}
	}
	return nil
}

func validateAccessGateConfig(config map[string]any) error {
	raw, ok := config["passcode"]
	if !ok {
		return nil // open gate
	}
	if _, ok := raw.(string); !ok {
		return fmt.Errorf("passcode must be a string")
	}
	return nil
}
