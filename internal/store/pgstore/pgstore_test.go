package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/store"
)

// startPostgres spins up a disposable Postgres container. Set
// PATHWAY_PG_TESTS=1 to run these; without Docker the suite skips.
func startPostgres(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("PATHWAY_PG_TESTS") == "" {
		t.Skip("set PATHWAY_PG_TESTS=1 to run Postgres backend tests")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("pathway-test"),
		postgres.WithUsername("pathway"),
		postgres.WithPassword("pathway"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	st, err := Open(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Migrate(ctx))
	return st
}

func TestPostgresStore(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	t.Run("program slug unique", func(t *testing.T) {
		p := &model.Program{ID: uuid.New().String(), Name: "Hiring", Slug: "hiring"}
		require.NoError(t, st.CreateProgram(ctx, p))

		dup := &model.Program{ID: uuid.New().String(), Name: "Again", Slug: "hiring"}
		err := st.CreateProgram(ctx, dup)
		assert.True(t, fault.IsKind(err, fault.KindConflict), "got %v", err)

		got, err := st.GetProgramBySlug(ctx, "hiring")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
	})

	t.Run("update keeps slug column in sync", func(t *testing.T) {
		p := &model.Program{ID: uuid.New().String(), Name: "P", Slug: "before"}
		require.NoError(t, st.CreateProgram(ctx, p))

		_, err := st.UpdateProgram(ctx, p.ID, func(p *model.Program) error {
			p.Slug = "after"
			return nil
		})
		require.NoError(t, err)

		got, err := st.GetProgramBySlug(ctx, "after")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		_, err = st.GetProgramBySlug(ctx, "before")
		assert.True(t, fault.IsKind(err, fault.KindNotFound))
	})

	t.Run("one active process per user and program", func(t *testing.T) {
		userID := uuid.New().String()
		programID := uuid.New().String()

		first := &model.Process{ID: uuid.New().String(), UserID: userID, ProgramID: programID, Status: model.StatusInProgress}
		require.NoError(t, st.CreateProcess(ctx, first))

		dup := &model.Process{ID: uuid.New().String(), UserID: userID, ProgramID: programID}
		err := st.CreateProcess(ctx, dup)
		assert.True(t, fault.IsKind(err, fault.KindConflict), "partial unique index should reject, got %v", err)

		// Soft delete frees the slot; the is_deleted column tracks the doc.
		_, err = st.UpdateProcess(ctx, first.ID, func(p *model.Process) error {
			p.IsDeleted = true
			return nil
		})
		require.NoError(t, err)
		assert.NoError(t, st.CreateProcess(ctx, dup))

		_, err = st.FindActiveProcess(ctx, userID, programID)
		require.NoError(t, err)
	})

	t.Run("process filter", func(t *testing.T) {
		userID := uuid.New().String()
		programID := uuid.New().String()
		for _, status := range []string{"in_progress", "approved"} {
			p := &model.Process{ID: uuid.New().String(), UserID: userID, ProgramID: programID + status, Status: status}
			require.NoError(t, st.CreateProcess(ctx, p))
		}

		got, err := st.ListProcesses(ctx, store.ProcessFilter{UserID: userID, Status: "approved"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "approved", got[0].Status)
	})

	t.Run("user upsert and mutate", func(t *testing.T) {
		u := &model.UserProfile{ID: uuid.New().String(), Email: "a@b.co", Name: "Ada", Status: "invited"}
		require.NoError(t, st.PutUser(ctx, u))
		require.NoError(t, st.PutUser(ctx, u))

		_, err := st.UpdateUser(ctx, u.ID, func(u *model.UserProfile) error {
			u.Status = "active"
			return nil
		})
		require.NoError(t, err)

		got, err := st.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "active", got.Status)
	})

	t.Run("audit trail", func(t *testing.T) {
		entityID := uuid.New().String()
		for _, action := range []string{"process_created", "stage_submitted"} {
			require.NoError(t, st.AppendAudit(ctx, &model.AuditEntry{
				ID: uuid.New().String(), Action: action, EntityType: "process", EntityID: entityID,
			}))
		}
		entries, err := st.ListAudit(ctx, "process", entityID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "process_created", entries[0].Action)
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		assert.NoError(t, st.Migrate(ctx))
	})
}
