package roblox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorumine/groupwarden/cache/local"
)

func newLocalCache(t *testing.T) *local.LocalCache {
	t.Helper()
	c, err := local.NewCache(local.Config{GCInterval: time.Minute})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestCachedResolveUserID_HitsUpstreamOnce(t *testing.T) {
	stub := NewStub()
	stub.UsersByName["Alice"] = 1000
	p := NewCachedProvider(stub, newLocalCache(t), time.Minute)

	id, err := p.ResolveUserID(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), id)

	// Upstream mapping removed; the cached value must still serve.
	delete(stub.UsersByName, "Alice")
	id, err = p.ResolveUserID(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), id)
}

func TestCachedResolveUserID_CaseInsensitiveKey(t *testing.T) {
	stub := NewStub()
	stub.UsersByName["Alice"] = 1000
	p := NewCachedProvider(stub, newLocalCache(t), time.Minute)

	_, err := p.ResolveUserID(context.Background(), "Alice")
	require.NoError(t, err)

	delete(stub.UsersByName, "Alice")
	id, err := p.ResolveUserID(context.Background(), "ALICE")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), id)
}

func TestCachedResolveUserID_MissNotCached(t *testing.T) {
	stub := NewStub()
	p := NewCachedProvider(stub, newLocalCache(t), time.Minute)

	_, err := p.ResolveUserID(context.Background(), "Ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	// The user appears later; resolution must succeed.
	stub.UsersByName["Ghost"] = 7
	id, err := p.ResolveUserID(context.Background(), "Ghost")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestCachedProvider_RankPassesThrough(t *testing.T) {
	stub := NewStub()
	stub.SetRankOf(100, 1000, 30)
	p := NewCachedProvider(stub, newLocalCache(t), time.Minute)

	rank, err := p.GetRankInGroup(context.Background(), 100, 1000)
	require.NoError(t, err)
	assert.Equal(t, 30, rank)

	// Rank data is never cached; a change is visible immediately.
	stub.SetRankOf(100, 1000, 40)
	rank, err = p.GetRankInGroup(context.Background(), 100, 1000)
	require.NoError(t, err)
	assert.Equal(t, 40, rank)
}
