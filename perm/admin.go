package perm

import (
	"context"
	"errors"

	"github.com/yorumine/groupwarden/model"
	"gorm.io/gorm"
)

// Setup binds a guild to its main Roblox group, replacing any previous
// binding. Exposed only on the admin-key surface.
func (r *Resolver) Setup(ctx context.Context, guildID string, groupID int64) error {
	cfg := model.GuildConfig{GuildID: guildID, MainGroupID: groupID}
	return r.db.WithContext(ctx).Save(&cfg).Error
}

// SeedGrant inserts a permission grant without an authorization check.
// Used by the admin-key surface to bootstrap the first Owner rank set;
// without it a fresh guild would deny everything forever.
func (r *Resolver) SeedGrant(ctx context.Context, guildID string, level Level, rankID int) (bool, error) {
	return r.insertGrant(ctx, guildID, level, rankID)
}

// Grant authorizes a rank ID at a permission level. Owner-gated. Returns
// false when the grant already existed.
func (r *Resolver) Grant(ctx context.Context, actorDiscordID, guildID string, level Level, rankID int) (bool, error) {
	if err := r.Authorize(ctx, actorDiscordID, guildID, LevelOwner); err != nil {
		return false, err
	}
	return r.insertGrant(ctx, guildID, level, rankID)
}

// Revoke removes a rank ID from a permission level. Owner-gated. Returns
// false when no such grant existed; that is a no-op, not an error.
func (r *Resolver) Revoke(ctx context.Context, actorDiscordID, guildID string, level Level, rankID int) (bool, error) {
	if err := r.Authorize(ctx, actorDiscordID, guildID, LevelOwner); err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).
		Where("guild_id = ? AND level = ? AND rank_id = ?", guildID, level.String(), rankID).
		Delete(&model.PermissionGrant{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Resolver) insertGrant(ctx context.Context, guildID string, level Level, rankID int) (bool, error) {
	var existing model.PermissionGrant
	err := r.db.WithContext(ctx).
		Where("guild_id = ? AND level = ? AND rank_id = ?", guildID, level.String(), rankID).
		First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	grant := model.PermissionGrant{GuildID: guildID, Level: level.String(), RankID: rankID}
	if err := r.db.WithContext(ctx).Create(&grant).Error; err != nil {
		return false, err
	}
	return true, nil
}

// Levels returns the guild's permission config as level → granted rank IDs.
func (r *Resolver) Levels(ctx context.Context, guildID string) (map[string][]int, error) {
	var grants []model.PermissionGrant
	if err := r.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("level, rank_id").
		Find(&grants).Error; err != nil {
		return nil, err
	}
	out := make(map[string][]int)
	for _, g := range grants {
		out[g.Level] = append(out[g.Level], g.RankID)
	}
	return out, nil
}
