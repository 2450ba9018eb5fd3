package roblox

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/yorumine/groupwarden/cache"
)

// CachedProvider wraps a Provider and caches username→ID resolution, the
// only lookup that is safe to cache: usernames change rarely and a stale
// hit resolves to the same account. Rank and role data passes through.
type CachedProvider struct {
	Provider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps p with a username-resolution cache.
func NewCachedProvider(p Provider, c cache.Cache, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedProvider{Provider: p, cache: c, ttl: ttl}
}

func (p *CachedProvider) ResolveUserID(ctx context.Context, username string) (int64, error) {
	key := "roblox:uid:" + strings.ToLower(username)
	if v, err := p.cache.Get(ctx, key); err == nil {
		if id, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			return id, nil
		}
	}
	id, err := p.Provider.ResolveUserID(ctx, username)
	if err != nil {
		return 0, err
	}
	_ = p.cache.Set(ctx, key, strconv.FormatInt(id, 10), p.ttl)
	return id, nil
}
