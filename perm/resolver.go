// Package perm decides whether an actor may perform a privileged operation.
// Authorization is driven by per-guild permission grants (rank IDs bound to
// permission levels) and the actor's live rank in the guild's main group.
// Every check fails closed: missing configuration or an unresolved identity
// denies.
package perm

import (
	"context"
	"errors"

	"github.com/yorumine/groupwarden/identity"
	"github.com/yorumine/groupwarden/model"
	"github.com/yorumine/groupwarden/roblox"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNoMainGroup is returned when the guild has no main group configured.
	ErrNoMainGroup = errors.New("perm: no main group configured for this guild")
	// ErrUnauthorized is returned when the actor's rank is not granted the
	// required permission level.
	ErrUnauthorized = errors.New("perm: insufficient permission level")
)

// Resolver performs authorization checks. All methods are read-only and
// safe to call repeatedly within one request.
type Resolver struct {
	db       *gorm.DB
	provider roblox.Provider
	linker   *identity.Linker
	logger   *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(db *gorm.DB, provider roblox.Provider, linker *identity.Linker, logger *zap.Logger) *Resolver {
	return &Resolver{db: db, provider: provider, linker: linker, logger: logger}
}

// MainGroupID returns the guild's main Roblox group ID.
func (r *Resolver) MainGroupID(ctx context.Context, guildID string) (int64, error) {
	var cfg model.GuildConfig
	err := r.db.WithContext(ctx).Where("guild_id = ?", guildID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNoMainGroup
	}
	if err != nil {
		return 0, err
	}
	return cfg.MainGroupID, nil
}

// Authorize checks whether the actor holds the required permission level in
// the guild. It walks the hierarchy from most privileged down to the
// required level and allows on the first level whose granted rank set
// contains the actor's current rank.
func (r *Resolver) Authorize(ctx context.Context, actorDiscordID, guildID string, required Level) error {
	var grants []model.PermissionGrant
	if err := r.db.WithContext(ctx).Where("guild_id = ?", guildID).Find(&grants).Error; err != nil {
		return err
	}
	if len(grants) == 0 {
		// No permission config at all: deny everything.
		return ErrUnauthorized
	}

	acc, err := r.linker.ByDiscord(ctx, actorDiscordID)
	if err != nil {
		if errors.Is(err, identity.ErrNotLinked) {
			return err
		}
		return err
	}

	groupID, err := r.MainGroupID(ctx, guildID)
	if err != nil {
		return err
	}
	actorRank, err := r.provider.GetRankInGroup(ctx, groupID, acc.RobloxUserID)
	if err != nil {
		return err
	}

	byLevel := make(map[string]map[int]bool, len(levelOrder))
	for _, g := range grants {
		if byLevel[g.Level] == nil {
			byLevel[g.Level] = make(map[int]bool)
		}
		byLevel[g.Level][g.RankID] = true
	}

	for _, l := range levelOrder {
		if byLevel[l.String()][actorRank] {
			return nil
		}
		if l == required {
			break
		}
	}
	return ErrUnauthorized
}

// ActorContext is the acting member's resolved identity and live rank in
// the guild's main group.
type ActorContext struct {
	RobloxUserID int64
	Rank         int
	GroupID      int64
}

// Actor resolves the acting member's Roblox identity and current rank.
// Used by operations that compare the actor's rank against a target.
func (r *Resolver) Actor(ctx context.Context, actorDiscordID, guildID string) (*ActorContext, error) {
	acc, err := r.linker.ByDiscord(ctx, actorDiscordID)
	if err != nil {
		return nil, err
	}
	groupID, err := r.MainGroupID(ctx, guildID)
	if err != nil {
		return nil, err
	}
	rank, err := r.provider.GetRankInGroup(ctx, groupID, acc.RobloxUserID)
	if err != nil {
		return nil, err
	}
	return &ActorContext{RobloxUserID: acc.RobloxUserID, Rank: rank, GroupID: groupID}, nil
}
