package vault

import (
	"context"
	"strings"
	"sync"
)

// CachedProvider memoizes Execute results per (provider, argv) within a
// single run, so a template referencing the same bitwarden() item twice
// (e.g. once for login.username, once for login.password by way of two
// bitwardenFields() calls) only shells out once. Mirrors
// original_source/crates/template/src/functions.rs's BitwardenCache.
type CachedProvider struct {
	inner Provider
	mu    sync.Mutex
	cache map[string]any
}

// NewCachedProvider wraps inner with a process-lifetime result cache.
func NewCachedProvider(inner Provider) *CachedProvider {
	return &CachedProvider{inner: inner, cache: make(map[string]any)}
}

func (c *CachedProvider) Name() string { return c.inner.Name() }

func (c *CachedProvider) Execute(ctx context.Context, cmdArgs []string) (any, error) {
	key := strings.Join(cmdArgs, "|")

	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	result, err := c.inner.Execute(ctx, cmdArgs)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = result
	c.mu.Unlock()
	return result, nil
}

// Registry resolves provider names to shared, cached Provider instances,
// one per provider name, for the lifetime of a template render. The
// original engine only ever configures a single provider per run, but
// the registry supports look-up by name to keep the template functions'
// signatures simple (each bitwarden* call carries its own provider_name
// argument).
type Registry struct {
	mu    sync.Mutex
	cache map[string]*CachedProvider
}

// NewRegistry returns an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{cache: make(map[string]*CachedProvider)}
}

// Get returns the cached provider for name, creating and caching it on
// first use.
func (r *Registry) Get(name string) (*CachedProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.cache[name]; ok {
		return p, nil
	}
	provider, err := NewProvider(name)
	if err != nil {
		return nil, err
	}
	cached := NewCachedProvider(provider)
	r.cache[name] = cached
	return cached, nil
}
