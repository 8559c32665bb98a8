package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/draftforge/research-api/internal/domain"
	"github.com/draftforge/research-api/internal/store"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to the database named by DATABASE_URL. Tests in this
// file exercise real SQL and are skipped when no database is available.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("skipping postgres tests: DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func createTestTask(t *testing.T, s *PostgresTaskStore, topic string) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(topic)
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), task))

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(context.Background(), `DELETE FROM tasks WHERE id = $1`, task.ID)
	})
	return task
}

func statusPtr(s domain.TaskStatus) *domain.TaskStatus { return &s }

func TestPostgresTaskStore_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	s := NewPostgresTaskStore(db, nil)
	ctx := context.Background()

	task := createTestTask(t, s, "edge computing trends")

	got, err := s.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "edge computing trends", got.Topic)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
	assert.Empty(t, got.ArtifactKey)
	assert.Empty(t, got.ErrorMessage)
}

func TestPostgresTaskStore_GetMissing(t *testing.T) {
	db := openTestDB(t)
	s := NewPostgresTaskStore(db, nil)

	_, err := s.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestPostgresTaskStore_Patch(t *testing.T) {
	db := openTestDB(t)
	s := NewPostgresTaskStore(db, nil)
	ctx := context.Background()

	t.Run("advances status and rewrites updated_at", func(t *testing.T) {
		task := createTestTask(t, s, "patch status")

		err := s.Patch(ctx, task.ID, store.TaskPatch{Status: statusPtr(domain.TaskStatusResearching)})
		require.NoError(t, err)

		got, err := s.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusResearching, got.Status)
		assert.True(t, got.UpdatedAt.After(task.UpdatedAt))
	})

	t.Run("sets artifact key on researched", func(t *testing.T) {
		task := createTestTask(t, s, "patch artifact")
		require.NoError(t, s.Patch(ctx, task.ID, store.TaskPatch{Status: statusPtr(domain.TaskStatusResearching)}))

		key := "research/" + task.ID.String() + ".md"
		err := s.Patch(ctx, task.ID, store.TaskPatch{
			Status:      statusPtr(domain.TaskStatusResearched),
			ArtifactKey: &key,
		})
		require.NoError(t, err)

		got, err := s.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusResearched, got.Status)
		assert.Equal(t, key, got.ArtifactKey)
	})

	t.Run("patch without status leaves status untouched", func(t *testing.T) {
		task := createTestTask(t, s, "patch error only")

		msg := "rate limited"
		require.NoError(t, s.Patch(ctx, task.ID, store.TaskPatch{ErrorMessage: &msg}))

		got, err := s.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusPending, got.Status)
		assert.Equal(t, "rate limited", got.ErrorMessage)
	})

	t.Run("rejects illegal transition from researched", func(t *testing.T) {
		task := createTestTask(t, s, "terminal task")
		require.NoError(t, s.Patch(ctx, task.ID, store.TaskPatch{Status: statusPtr(domain.TaskStatusResearching)}))
		key := "research/" + task.ID.String() + ".md"
		require.NoError(t, s.Patch(ctx, task.ID, store.TaskPatch{
			Status:      statusPtr(domain.TaskStatusResearched),
			ArtifactKey: &key,
		}))

		err := s.Patch(ctx, task.ID, store.TaskPatch{Status: statusPtr(domain.TaskStatusResearching)})
		assert.ErrorIs(t, err, store.ErrIllegalTransition)

		got, err := s.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusResearched, got.Status)
	})

	t.Run("returns not found for unknown task", func(t *testing.T) {
		msg := "orphan"
		err := s.Patch(ctx, uuid.New(), store.TaskPatch{ErrorMessage: &msg})
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("rejects empty patch", func(t *testing.T) {
		task := createTestTask(t, s, "empty patch")
		err := s.Patch(ctx, task.ID, store.TaskPatch{})
		assert.ErrorIs(t, err, store.ErrEmptyPatch)
	})
}
