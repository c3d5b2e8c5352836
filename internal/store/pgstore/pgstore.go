// Package pgstore is the Postgres document store backend. Each entity is one
// JSONB document row; a few columns are denormalized for lookups and
// constraints. Per-document write serialization comes from row locks: every
// mutation runs SELECT ... FOR UPDATE inside a transaction, and the
// one-process-per-(user,program) guard is a partial unique index rather than
// a read-then-insert check.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/store"
)

// Store implements store.Interface on a pgx connection pool.
type Store struct {
	db *pgxpool.Pool
}

var _ store.Interface = (*Store)(nil)

// New creates a Store over an existing pool.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func marshalDoc(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// getDoc scans a single JSONB column into a fresh T.
func getDoc[T any](ctx context.Context, s *Store, query string, args ...any) (*T, error) {
	var data []byte
	if err := s.db.QueryRow(ctx, query, args...).Scan(&data); err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &v, nil
}

// listDoc scans a JSONB column result set into []*T.
func listDoc[T any](ctx context.Context, s *Store, query string, args ...any) ([]*T, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// mutate runs a read-modify-write cycle on one row under a row lock.
// sync re-derives the denormalized columns after fn runs.
func mutate[T any](ctx context.Context, s *Store, table, id string, notFound *fault.Error,
	fn func(*T) error, sync func(context.Context, pgx.Tx, *T) error) (*T, error) {

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var data []byte
	query := fmt.Sprintf("SELECT doc FROM %s WHERE id = $1 FOR UPDATE", table)
	if err := tx.QueryRow(ctx, query, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if err := fn(&v); err != nil {
		return nil, err
	}
	out, err := marshalDoc(&v)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("UPDATE %s SET doc = $1 WHERE id = $2", table), out, id); err != nil {
		return nil, err
	}
	if sync != nil {
		if err := sync(ctx, tx, &v); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &v, nil
}

// --- programs ---

func (s *Store) CreateProgram(ctx context.Context, p *model.Program) error {
	stampTimes(&p.CreatedAt, &p.UpdatedAt)
	doc, err := marshalDoc(p)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, "INSERT INTO programs (id, slug, doc) VALUES ($1, $2, $3)", p.ID, p.Slug, doc)
	if isUniqueViolation(err) {
		return fault.Conflict("program slug %q already exists", p.Slug)
	}
	return err
}

func (s *Store) GetProgram(ctx context.Context, id string) (*model.Program, error) {
	p, err := getDoc[model.Program](ctx, s, "SELECT doc FROM programs WHERE id = $1", id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("program %s not found", id)
	}
	return p, err
}

func (s *Store) GetProgramBySlug(ctx context.Context, slug string) (*model.Program, error) {
	p, err := getDoc[model.Program](ctx, s, "SELECT doc FROM programs WHERE slug = $1", slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("program slug %q not found", slug)
	}
	return p, err
}

func (s *Store) ListPrograms(ctx context.Context) ([]*model.Program, error) {
	return listDoc[model.Program](ctx, s, "SELECT doc FROM programs ORDER BY doc->>'created_at'")
}

func (s *Store) UpdateProgram(ctx context.Context, id string, fn func(*model.Program) error) (*model.Program, error) {
	return mutate(ctx, s, "programs", id, fault.NotFound("program %s not found", id),
		func(p *model.Program) error {
			if err := fn(p); err != nil {
				return err
			}
			p.UpdatedAt = time.Now().UTC()
			return nil
		},
		func(ctx context.Context, tx pgx.Tx, p *model.Program) error {
			_, err := tx.Exec(ctx, "UPDATE programs SET slug = $1 WHERE id = $2", p.Slug, p.ID)
			return err
		})
}

// --- stages ---

func (s *Store) CreateStage(ctx context.Context, st *model.Stage) error {
	stampTimes(&st.CreatedAt, &st.UpdatedAt)
	doc, err := marshalDoc(st)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, "INSERT INTO stages (id, program_id, doc) VALUES ($1, $2, $3)", st.ID, st.ProgramID, doc)
	if isUniqueViolation(err) {
		return fault.Conflict("stage %s already exists", st.ID)
	}
	return err
}

func (s *Store) GetStage(ctx context.Context, id string) (*model.Stage, error) {
	st, err := getDoc[model.Stage](ctx, s, "SELECT doc FROM stages WHERE id = $1", id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("stage %s not found", id)
	}
	return st, err
}

func (s *Store) UpdateStage(ctx context.Context, id string, fn func(*model.Stage) error) (*model.Stage, error) {
	return mutate(ctx, s, "stages", id, fault.NotFound("stage %s not found", id),
		func(st *model.Stage) error {
			if err := fn(st); err != nil {
				return err
			}
			st.UpdatedAt = time.Now().UTC()
			return nil
		}, nil)
}

func (s *Store) ListStages(ctx context.Context, programID string) ([]*model.Stage, error) {
	return listDoc[model.Stage](ctx, s, "SELECT doc FROM stages WHERE program_id = $1", programID)
}

// --- stage templates ---

func (s *Store) CreateTemplate(ctx context.Context, t *model.StageTemplate) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	doc, err := marshalDoc(t)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, "INSERT INTO stage_templates (id, doc) VALUES ($1, $2)", t.ID, doc)
	if isUniqueViolation(err) {
		return fault.Conflict("template %s already exists", t.ID)
	}
	return err
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*model.StageTemplate, error) {
	t, err := getDoc[model.StageTemplate](ctx, s, "SELECT doc FROM stage_templates WHERE id = $1", id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("template %s not found", id)
	}
	return t, err
}

func (s *Store) ListTemplates(ctx context.Context) ([]*model.StageTemplate, error) {
	return listDoc[model.StageTemplate](ctx, s, "SELECT doc FROM stage_templates")
}

// --- processes ---

func (s *Store) CreateProcess(ctx context.Context, p *model.Process) error {
	stampTimes(&p.CreatedAt, &p.UpdatedAt)
	doc, err := marshalDoc(p)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		"INSERT INTO processes (id, user_id, program_id, is_deleted, doc) VALUES ($1, $2, $3, $4, $5)",
		p.ID, p.UserID, p.ProgramID, p.IsDeleted, doc)
	if isUniqueViolation(err) {
		return fault.Conflict("process already exists for user %s in program %s", p.UserID, p.ProgramID)
	}
	return err
}

func (s *Store) GetProcess(ctx context.Context, id string) (*model.Process, error) {
	p, err := getDoc[model.Process](ctx, s, "SELECT doc FROM processes WHERE id = $1", id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("process %s not found", id)
	}
	return p, err
}

func (s *Store) UpdateProcess(ctx context.Context, id string, fn func(*model.Process) error) (*model.Process, error) {
	return mutate(ctx, s, "processes", id, fault.NotFound("process %s not found", id),
		func(p *model.Process) error {
			if err := fn(p); err != nil {
				return err
			}
			p.UpdatedAt = time.Now().UTC()
			return nil
		},
		func(ctx context.Context, tx pgx.Tx, p *model.Process) error {
			_, err := tx.Exec(ctx, "UPDATE processes SET is_deleted = $1 WHERE id = $2", p.IsDeleted, p.ID)
			return err
		})
}

func (s *Store) FindActiveProcess(ctx context.Context, userID, programID string) (*model.Process, error) {
	p, err := getDoc[model.Process](ctx, s,
		"SELECT doc FROM processes WHERE user_id = $1 AND program_id = $2 AND NOT is_deleted", userID, programID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("no process for user %s in program %s", userID, programID)
	}
	return p, err
}

func (s *Store) ListProcesses(ctx context.Context, f store.ProcessFilter) ([]*model.Process, error) {
	query := "SELECT doc FROM processes WHERE 1=1"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !f.IncludeDeleted {
		query += " AND NOT is_deleted"
	}
	if f.UserID != "" {
		query += " AND user_id = " + arg(f.UserID)
	}
	if f.ProgramID != "" {
		query += " AND program_id = " + arg(f.ProgramID)
	}
	if f.Status != "" {
		query += " AND doc->>'status' = " + arg(f.Status)
	}
	query += " ORDER BY doc->>'created_at'"
	return listDoc[model.Process](ctx, s, query, args...)
}

// --- blocks ---

func (s *Store) CreateBlock(ctx context.Context, b *model.BlockInstance) error {
	stampTimes(&b.CreatedAt, &b.UpdatedAt)
	doc, err := marshalDoc(b)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, "INSERT INTO blocks (id, doc) VALUES ($1, $2)", b.ID, doc)
	if isUniqueViolation(err) {
		return fault.Conflict("block %s already exists", b.ID)
	}
	return err
}

func (s *Store) GetBlock(ctx context.Context, id string) (*model.BlockInstance, error) {
	b, err := getDoc[model.BlockInstance](ctx, s, "SELECT doc FROM blocks WHERE id = $1", id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("block %s not found", id)
	}
	return b, err
}

func (s *Store) UpdateBlock(ctx context.Context, id string, fn func(*model.BlockInstance) error) (*model.BlockInstance, error) {
	return mutate(ctx, s, "blocks", id, fault.NotFound("block %s not found", id),
		func(b *model.BlockInstance) error {
			if err := fn(b); err != nil {
				return err
			}
			b.UpdatedAt = time.Now().UTC()
			return nil
		}, nil)
}

// --- users ---

func (s *Store) PutUser(ctx context.Context, u *model.UserProfile) error {
	u.UpdatedAt = time.Now().UTC()
	doc, err := marshalDoc(u)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		"INSERT INTO users (id, doc) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc", u.ID, doc)
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.UserProfile, error) {
	u, err := getDoc[model.UserProfile](ctx, s, "SELECT doc FROM users WHERE id = $1", id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("user %s not found", id)
	}
	return u, err
}

func (s *Store) UpdateUser(ctx context.Context, id string, fn func(*model.UserProfile) error) (*model.UserProfile, error) {
	return mutate(ctx, s, "users", id, fault.NotFound("user %s not found", id),
		func(u *model.UserProfile) error {
			if err := fn(u); err != nil {
				return err
			}
			u.UpdatedAt = time.Now().UTC()
			return nil
		}, nil)
}

// --- audit ---

func (s *Store) AppendAudit(ctx context.Context, e *model.AuditEntry) error {
	doc, err := marshalDoc(e)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		"INSERT INTO audit_log (entity_type, entity_id, doc) VALUES ($1, $2, $3)",
		e.EntityType, e.EntityID, doc)
	return err
}

func (s *Store) ListAudit(ctx context.Context, entityType, entityID string) ([]*model.AuditEntry, error) {
	query := "SELECT doc FROM audit_log WHERE 1=1"
	var args []any
	if entityType != "" {
		args = append(args, entityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if entityID != "" {
		args = append(args, entityID)
		query += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	query += " ORDER BY id"
	return listDoc[model.AuditEntry](ctx, s, query, args...)
}

func stampTimes(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}
