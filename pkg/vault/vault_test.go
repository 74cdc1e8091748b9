package vault

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls atomic.Int32
	name  string
}

func (p *countingProvider) Name() string { return p.name }

func (p *countingProvider) Execute(_ context.Context, cmdArgs []string) (any, error) {
	p.calls.Add(1)
	return map[string]any{"args": cmdArgs}, nil
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider("lastpass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lastpass")
}

func TestNewProviderKnown(t *testing.T) {
	p, err := NewProvider("bw")
	require.NoError(t, err)
	assert.Equal(t, "bw", p.Name())

	p, err = NewProvider("rbw")
	require.NoError(t, err)
	assert.Equal(t, "rbw", p.Name())
}

func TestCachedProviderMemoizesByArgv(t *testing.T) {
	inner := &countingProvider{name: "fake"}
	cached := NewCachedProvider(inner)

	ctx := context.Background()
	_, err := cached.Execute(ctx, []string{"get", "item", "foo"})
	require.NoError(t, err)
	_, err = cached.Execute(ctx, []string{"get", "item", "foo"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, inner.calls.Load())

	_, err = cached.Execute(ctx, []string{"get", "item", "bar"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestRegistryReturnsSameProviderForSameName(t *testing.T) {
	r := NewRegistry()
	a, err := r.Get("bw")
	require.NoError(t, err)
	b, err := r.Get("bw")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestRegistryPropagatesUnknownProviderError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("onepassword")
	require.Error(t, err)
}

func TestIsRawInvocation(t *testing.T) {
	assert.True(t, isRawInvocation([]string{"get", "--raw", "item"}))
	assert.False(t, isRawInvocation([]string{"get", "item"}))
}
