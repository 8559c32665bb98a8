package secrets

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider records how many times the underlying source is consulted.
type countingProvider struct {
	mu    sync.Mutex
	calls int
	key   string
	err   error
}

func (p *countingProvider) APIKey(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.key, nil
}

func (p *countingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestEnvProvider(t *testing.T) {
	t.Run("returns value from environment", func(t *testing.T) {
		t.Setenv("TEST_PROVIDER_KEY", "sk-test-123")

		key, err := EnvProvider{Name: "TEST_PROVIDER_KEY"}.APIKey(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "sk-test-123", key)
	})

	t.Run("fails when variable is unset", func(t *testing.T) {
		_, err := EnvProvider{Name: "TEST_PROVIDER_KEY_MISSING"}.APIKey(context.Background())

		assert.ErrorIs(t, err, ErrCredentialNotFound)
	})
}

func TestCached(t *testing.T) {
	t.Parallel()

	t.Run("fetches the source only once", func(t *testing.T) {
		source := &countingProvider{key: "sk-cached"}
		cached := NewCached(source)

		for i := 0; i < 5; i++ {
			key, err := cached.APIKey(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "sk-cached", key)
		}

		assert.Equal(t, 1, source.callCount())
	})

	t.Run("does not cache failures", func(t *testing.T) {
		source := &countingProvider{err: errors.New("secret store unavailable")}
		cached := NewCached(source)

		_, err := cached.APIKey(context.Background())
		assert.Error(t, err)

		// Source recovers; the next call must hit it again.
		source.mu.Lock()
		source.err = nil
		source.key = "sk-recovered"
		source.mu.Unlock()

		key, err := cached.APIKey(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "sk-recovered", key)
		assert.Equal(t, 2, source.callCount())
	})

	t.Run("concurrent readers see one fetch", func(t *testing.T) {
		source := &countingProvider{key: "sk-concurrent"}
		cached := NewCached(source)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				key, err := cached.APIKey(context.Background())
				assert.NoError(t, err)
				assert.Equal(t, "sk-concurrent", key)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, source.callCount())
	})
}
