package blob

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactKey(t *testing.T) {
	t.Parallel()

	key := ArtifactKey("b2cfa24e-4f0a-4a36-bb11-81dcdcf8a8a8")
	assert.Equal(t, "research/b2cfa24e-4f0a-4a36-bb11-81dcdcf8a8a8.md", key)

	// The derivation must be reproducible from the task ID alone.
	assert.Equal(t, key, ArtifactKey("b2cfa24e-4f0a-4a36-bb11-81dcdcf8a8a8"))
}

func TestFileStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("round-trips an artifact", func(t *testing.T) {
		s := NewFileStore(afero.NewMemMapFs(), nil)
		key := ArtifactKey("task-1")

		require.NoError(t, s.Put(ctx, key, ContentTypeMarkdown, []byte("# Findings\n")))

		body, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "# Findings\n", string(body))
	})

	t.Run("overwrites an existing object", func(t *testing.T) {
		s := NewFileStore(afero.NewMemMapFs(), nil)
		key := ArtifactKey("task-2")

		require.NoError(t, s.Put(ctx, key, ContentTypeMarkdown, []byte("first")))
		require.NoError(t, s.Put(ctx, key, ContentTypeMarkdown, []byte("second")))

		body, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "second", string(body))
	})

	t.Run("returns not found for missing object", func(t *testing.T) {
		s := NewFileStore(afero.NewMemMapFs(), nil)

		_, err := s.Get(ctx, ArtifactKey("missing"))
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		s := NewFileStore(afero.NewMemMapFs(), nil)
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		err := s.Put(cancelled, ArtifactKey("task-3"), ContentTypeMarkdown, []byte("x"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
