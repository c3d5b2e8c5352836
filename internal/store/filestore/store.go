// Package filestore is the zero-config document store backend: one JSON file
// per document under a base directory, atomic writes, and a store-wide lock
// that serializes read-modify-write cycles.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/store"
)

const (
	dirPrograms  = "programs"
	dirStages    = "stages"
	dirTemplates = "templates"
	dirProcesses = "processes"
	dirBlocks    = "blocks"
	dirUsers     = "users"
	auditLog     = "audit.log"
)

// Store implements store.Interface on the local filesystem.
type Store struct {
	baseDir string
	mu      sync.Mutex
}

var _ store.Interface = (*Store)(nil)

// New creates a Store rooted at baseDir, creating it if needed.
func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

// DefaultDir returns ~/.pathway/data.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".pathway", "data"), nil
}

// Close is a no-op for the file backend.
func (s *Store) Close() error { return nil }

func (s *Store) path(collection, id string) string {
	return filepath.Join(s.baseDir, collection, id+".json")
}

func (s *Store) dir(collection string) string {
	return filepath.Join(s.baseDir, collection)
}

func (s *Store) exists(collection, id string) bool {
	_, err := os.Stat(s.path(collection, id))
	return err == nil
}

// --- programs ---

func (s *Store) CreateProgram(_ context.Context, p *model.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exists(dirPrograms, p.ID) {
		return fault.Conflict("program %s already exists", p.ID)
	}
	existing, err := listDocs[model.Program](s.dir(dirPrograms))
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.Slug == p.Slug {
			return fault.Conflict("program slug %q already exists", p.Slug)
		}
	}
	stampTimes(&p.CreatedAt, &p.UpdatedAt)
	return writeDoc(s.path(dirPrograms, p.ID), p)
}

func (s *Store) GetProgram(_ context.Context, id string) (*model.Program, error) {
	p, err := readDoc[model.Program](s.path(dirPrograms, id))
	if os.IsNotExist(err) {
		return nil, fault.NotFound("program %s not found", id)
	}
	return p, err
}

func (s *Store) GetProgramBySlug(ctx context.Context, slug string) (*model.Program, error) {
	programs, err := s.ListPrograms(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range programs {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, fault.NotFound("program slug %q not found", slug)
}

func (s *Store) ListPrograms(_ context.Context) ([]*model.Program, error) {
	programs, err := listDocs[model.Program](s.dir(dirPrograms))
	if err != nil {
		return nil, err
	}
	sort.Slice(programs, func(i, j int) bool {
		return programs[i].CreatedAt.Before(programs[j].CreatedAt)
	})
	return programs, nil
}

func (s *Store) UpdateProgram(ctx context.Context, id string, fn func(*model.Program) error) (*model.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.GetProgram(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()
	if err := writeDoc(s.path(dirPrograms, id), p); err != nil {
		return nil, err
	}
	return p, nil
}

// --- stages ---

func (s *Store) CreateStage(_ context.Context, st *model.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exists(dirStages, st.ID) {
		return fault.Conflict("stage %s already exists", st.ID)
	}
	stampTimes(&st.CreatedAt, &st.UpdatedAt)
	return writeDoc(s.path(dirStages, st.ID), st)
}

func (s *Store) GetStage(_ context.Context, id string) (*model.Stage, error) {
	st, err := readDoc[model.Stage](s.path(dirStages, id))
	if os.IsNotExist(err) {
		return nil, fault.NotFound("stage %s not found", id)
	}
	return st, err
}

func (s *Store) UpdateStage(ctx context.Context, id string, fn func(*model.Stage) error) (*model.Stage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.GetStage(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	st.UpdatedAt = time.Now().UTC()
	if err := writeDoc(s.path(dirStages, id), st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) ListStages(_ context.Context, programID string) ([]*model.Stage, error) {
	all, err := listDocs[model.Stage](s.dir(dirStages))
	if err != nil {
		return nil, err
	}
	var stages []*model.Stage
	for _, st := range all {
		if st.ProgramID == programID {
			stages = append(stages, st)
		}
	}
	return stages, nil
}

// --- stage templates ---

func (s *Store) CreateTemplate(_ context.Context, t *model.StageTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exists(dirTemplates, t.ID) {
		return fault.Conflict("template %s already exists", t.ID)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return writeDoc(s.path(dirTemplates, t.ID), t)
}

func (s *Store) GetTemplate(_ context.Context, id string) (*model.StageTemplate, error) {
	t, err := readDoc[model.StageTemplate](s.path(dirTemplates, id))
	if os.IsNotExist(err) {
		return nil, fault.NotFound("template %s not found", id)
	}
	return t, err
}

func (s *Store) ListTemplates(_ context.Context) ([]*model.StageTemplate, error) {
	return listDocs[model.StageTemplate](s.dir(dirTemplates))
}

// --- processes ---

func (s *Store) CreateProcess(_ context.Context, p *model.Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exists(dirProcesses, p.ID) {
		return fault.Conflict("process %s already exists", p.ID)
	}
	// The one-process-per-(user,program) guard lives here, under the store
	// lock, so concurrent creates cannot race past the existence check.
	existing, err := listDocs[model.Process](s.dir(dirProcesses))
	if err != nil {
		return err
	}
	for _, other := range existing {
		if !other.IsDeleted && other.UserID == p.UserID && other.ProgramID == p.ProgramID {
			return fault.Conflict("process already exists for user %s in program %s", p.UserID, p.ProgramID)
		}
	}
	stampTimes(&p.CreatedAt, &p.UpdatedAt)
	return writeDoc(s.path(dirProcesses, p.ID), p)
}

func (s *Store) GetProcess(_ context.Context, id string) (*model.Process, error) {
	p, err := readDoc[model.Process](s.path(dirProcesses, id))
	if os.IsNotExist(err) {
		return nil, fault.NotFound("process %s not found", id)
	}
	return p, err
}

func (s *Store) UpdateProcess(ctx context.Context, id string, fn func(*model.Process) error) (*model.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.GetProcess(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()
	if err := writeDoc(s.path(dirProcesses, id), p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) FindActiveProcess(_ context.Context, userID, programID string) (*model.Process, error) {
	all, err := listDocs[model.Process](s.dir(dirProcesses))
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if !p.IsDeleted && p.UserID == userID && p.ProgramID == programID {
			return p, nil
		}
	}
	return nil, fault.NotFound("no process for user %s in program %s", userID, programID)
}

func (s *Store) ListProcesses(_ context.Context, f store.ProcessFilter) ([]*model.Process, error) {
	all, err := listDocs[model.Process](s.dir(dirProcesses))
	if err != nil {
		return nil, err
	}
	var out []*model.Process
	for _, p := range all {
		if p.IsDeleted && !f.IncludeDeleted {
			continue
		}
		if f.UserID != "" && p.UserID != f.UserID {
			continue
		}
		if f.ProgramID != "" && p.ProgramID != f.ProgramID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// --- blocks ---

func (s *Store) CreateBlock(_ context.Context, b *model.BlockInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exists(dirBlocks, b.ID) {
		return fault.Conflict("block %s already exists", b.ID)
	}
	stampTimes(&b.CreatedAt, &b.UpdatedAt)
	return writeDoc(s.path(dirBlocks, b.ID), b)
}

func (s *Store) GetBlock(_ context.Context, id string) (*model.BlockInstance, error) {
	b, err := readDoc[model.BlockInstance](s.path(dirBlocks, id))
	if os.IsNotExist(err) {
		return nil, fault.NotFound("block %s not found", id)
	}
	return b, err
}

func (s *Store) UpdateBlock(ctx context.Context, id string, fn func(*model.BlockInstance) error) (*model.BlockInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.GetBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	b.UpdatedAt = time.Now().UTC()
	if err := writeDoc(s.path(dirBlocks, id), b); err != nil {
		return nil, err
	}
	return b, nil
}

// --- users ---

func (s *Store) PutUser(_ context.Context, u *model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.UpdatedAt = time.Now().UTC()
	return writeDoc(s.path(dirUsers, u.ID), u)
}

func (s *Store) GetUser(_ context.Context, id string) (*model.UserProfile, error) {
	u, err := readDoc[model.UserProfile](s.path(dirUsers, id))
	if os.IsNotExist(err) {
		return nil, fault.NotFound("user %s not found", id)
	}
	return u, err
}

func (s *Store) UpdateUser(ctx context.Context, id string, fn func(*model.UserProfile) error) (*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now().UTC()
	if err := writeDoc(s.path(dirUsers, id), u); err != nil {
		return nil, err
	}
	return u, nil
}

// --- audit ---

// AppendAudit writes one JSON line to the audit log.
func (s *Store) AppendAudit(_ context.Context, e *model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.baseDir, auditLog), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListAudit(_ context.Context, entityType, entityID string) ([]*model.AuditEntry, error) {
	f, err := os.Open(filepath.Join(s.baseDir, auditLog))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var entries []*model.AuditEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e model.AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // skip broken lines
		}
		if entityType != "" && e.EntityType != entityType {
			continue
		}
		if entityID != "" && e.EntityID != entityID {
			continue
		}
		entries = append(entries, &e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return entries, nil
}

func stampTimes(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}
