// Package secrets resolves the research provider's API credential.
// The credential is not task-specific and does not change within a worker
// process's lifetime, so callers typically wrap a source in Cached and
// share it across handler invocations.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrCredentialNotFound is returned when a provider cannot locate the credential.
var ErrCredentialNotFound = errors.New("provider credential not found")

// Provider returns the research provider's API credential.
type Provider interface {
	// APIKey resolves the credential. Implementations may block on an
	// external round trip; callers pass a context for that reason.
	APIKey(ctx context.Context) (string, error)
}

// EnvProvider resolves the credential from an environment variable.
type EnvProvider struct {
	// Name is the environment variable holding the credential.
	Name string
}

// APIKey implements Provider.APIKey.
func (p EnvProvider) APIKey(ctx context.Context) (string, error) {
	value := os.Getenv(p.Name)
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s is empty", ErrCredentialNotFound, p.Name)
	}
	return value, nil
}

// Static is a fixed-credential provider, used in tests.
type Static string

// APIKey implements Provider.APIKey.
func (s Static) APIKey(ctx context.Context) (string, error) {
	return string(s), nil
}

// Cached decorates a Provider with fetch-once semantics: the first
// successful fetch is retained for the lifetime of the process and every
// later call reads the cached value without touching the source. Failed
// fetches are not cached, so a transient outage at startup does not poison
// the cache. An initialization race between concurrent callers is tolerated;
// the fetch is idempotent and both callers store the same value.
type Cached struct {
	source Provider

	mu  sync.Mutex
	key string
	ok  bool
}

// NewCached wraps source with a process-lifetime credential cache.
func NewCached(source Provider) *Cached {
	if source == nil {
		panic("source cannot be nil")
	}
	return &Cached{source: source}
}

// Ensure Cached implements Provider
var _ Provider = (*Cached)(nil)

// APIKey implements Provider.APIKey.
func (c *Cached) APIKey(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ok {
		return c.key, nil
	}

	key, err := c.source.APIKey(ctx)
	if err != nil {
		return "", err
	}

	c.key = key
	c.ok = true
	return key, nil
}
