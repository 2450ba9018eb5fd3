// Package xp tracks per-member experience points and promotes members one
// role when they cross the next role's configured threshold. The
// read-modify-write on the XP record is guarded by a short per-member cache
// lease so two concurrent adjustments cannot lose an update.
package xp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yorumine/groupwarden/audit"
	"github.com/yorumine/groupwarden/cache"
	"github.com/yorumine/groupwarden/events"
	"github.com/yorumine/groupwarden/model"
	"github.com/yorumine/groupwarden/perm"
	"github.com/yorumine/groupwarden/roblox"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrInsufficientAuthority is returned when the target's rank is at or
	// above the actor's. Prevents peer and superior XP manipulation.
	ErrInsufficientAuthority = errors.New("xp: cannot adjust xp for a member ranked at or above you")
	// ErrBusy is returned when another adjustment for the same member is
	// in flight.
	ErrBusy = errors.New("xp: another adjustment for this member is in progress")
	// ErrInvalidAction is returned for an unknown action verb.
	ErrInvalidAction = errors.New("xp: action must be add, remove or set")
	// ErrInvalidAmount is returned for a negative amount.
	ErrInvalidAmount = errors.New("xp: amount must not be negative")
)

// Action is an XP adjustment verb.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionSet    Action = "set"
)

const lockTTL = 10 * time.Second

// Service is the XP ledger and auto-promoter.
type Service struct {
	db       *gorm.DB
	cache    cache.Cache
	provider roblox.Provider
	perm     *perm.Resolver
	audit    *audit.Service
	events   *events.Publisher
	logger   *zap.Logger
}

// NewService creates an XP Service.
func NewService(db *gorm.DB, c cache.Cache, provider roblox.Provider, resolver *perm.Resolver, auditSvc *audit.Service, pub *events.Publisher, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		cache:    c,
		provider: provider,
		perm:     resolver,
		audit:    auditSvc,
		events:   pub,
		logger:   logger,
	}
}

// Adjust applies an XP change to the target and runs the auto-promotion
// check. Requires Officer. Returns the stored XP and, when a threshold was
// crossed, the role the member was promoted into — at most one tier per
// call, even if the new XP clears several thresholds.
func (svc *Service) Adjust(ctx context.Context, actorDiscordID, guildID, username string, action Action, amount int64) (int64, *roblox.Role, error) {
	switch action {
	case ActionAdd, ActionRemove, ActionSet:
	default:
		return 0, nil, ErrInvalidAction
	}
	if amount < 0 {
		return 0, nil, ErrInvalidAmount
	}
	if err := svc.perm.Authorize(ctx, actorDiscordID, guildID, perm.LevelOfficer); err != nil {
		return 0, nil, err
	}

	actor, err := svc.perm.Actor(ctx, actorDiscordID, guildID)
	if err != nil {
		return 0, nil, err
	}
	userID, err := svc.provider.ResolveUserID(ctx, username)
	if err != nil {
		return 0, nil, err
	}
	targetRank, err := svc.provider.GetRankInGroup(ctx, actor.GroupID, userID)
	if err != nil {
		return 0, nil, err
	}
	if targetRank >= actor.Rank {
		return 0, nil, ErrInsufficientAuthority
	}

	unlock, err := svc.lock(ctx, actor.GroupID, userID)
	if err != nil {
		return 0, nil, err
	}
	defer unlock()

	newXP, err := svc.write(ctx, actor.GroupID, userID, action, amount)
	if err != nil {
		return 0, nil, err
	}

	svc.audit.Log(audit.Entry{
		RobloxUserID: userID,
		GroupID:      actor.GroupID,
		Action:       model.AuditXPAdjusted,
		PerformedBy:  actorDiscordID,
		Detail: map[string]interface{}{
			"action": string(action),
			"amount": amount,
			"new_xp": newXP,
		},
	})
	svc.events.Publish(ctx, events.Event{
		Type:         events.TypeXPAdjusted,
		GuildID:      guildID,
		GroupID:      actor.GroupID,
		RobloxUserID: userID,
		Detail:       map[string]interface{}{"action": string(action), "new_xp": newXP},
	})

	promoted, err := svc.autoPromote(ctx, actorDiscordID, guildID, actor.GroupID, userID, targetRank, newXP)
	if err != nil {
		// The XP write succeeded; surface the promotion failure with it.
		return newXP, nil, err
	}
	return newXP, promoted, nil
}

// write performs the read-modify-write on the XP record.
func (svc *Service) write(ctx context.Context, groupID, userID int64, action Action, amount int64) (int64, error) {
	var rec model.XPRecord
	err := svc.db.WithContext(ctx).
		Where("roblox_user_id = ? AND group_id = ?", userID, groupID).
		First(&rec).Error
	fresh := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !fresh {
		return 0, err
	}
	if fresh {
		rec = model.XPRecord{RobloxUserID: userID, GroupID: groupID}
	}

	switch action {
	case ActionAdd:
		rec.XP += amount
	case ActionRemove:
		rec.XP -= amount
		if rec.XP < 0 {
			rec.XP = 0
		}
	case ActionSet:
		rec.XP = amount
	}

	if fresh {
		err = svc.db.WithContext(ctx).Create(&rec).Error
	} else {
		err = svc.db.WithContext(ctx).Save(&rec).Error
	}
	if err != nil {
		return 0, err
	}
	return rec.XP, nil
}

// autoPromote promotes the member into the next role when its configured
// threshold is met. The actor's authority was already verified against the
// target's current rank, so the provider write here deliberately skips the
// transition engine's re-check.
func (svc *Service) autoPromote(ctx context.Context, actorDiscordID, guildID string, groupID, userID int64, currentRank int, newXP int64) (*roblox.Role, error) {
	roles, err := svc.provider.GetRoles(ctx, groupID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, r := range roles {
		if r.Rank == currentRank {
			idx = i
			break
		}
	}
	if idx == -1 || idx >= len(roles)-1 {
		return nil, nil
	}
	next := roles[idx+1]

	var required model.RequiredXP
	err = svc.db.WithContext(ctx).
		Where("guild_id = ? AND rank_id = ?", guildID, next.Rank).
		First(&required).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if newXP < required.XP {
		return nil, nil
	}

	if err := svc.provider.SetRank(ctx, groupID, userID, next.Rank); err != nil {
		return nil, err
	}

	svc.audit.Log(audit.Entry{
		RobloxUserID: userID,
		GroupID:      groupID,
		Action:       model.AuditAutoPromoted,
		PerformedBy:  actorDiscordID,
		Detail: map[string]interface{}{
			"new_rank":    next.Rank,
			"new_role":    next.Name,
			"xp":          newXP,
			"required_xp": required.XP,
		},
	})
	svc.events.Publish(ctx, events.Event{
		Type:         events.TypeAutoPromoted,
		GuildID:      guildID,
		GroupID:      groupID,
		RobloxUserID: userID,
		Detail:       map[string]interface{}{"new_rank": next.Rank, "new_role": next.Name},
	})
	svc.logger.Info("auto-promoted",
		zap.String("guild_id", guildID),
		zap.Int64("roblox_user_id", userID),
		zap.Int("new_rank", next.Rank),
		zap.Int64("xp", newXP))
	return &next, nil
}

// lock takes the per-member write lease.
func (svc *Service) lock(ctx context.Context, groupID, userID int64) (func(), error) {
	key := fmt.Sprintf("xplock:%d:%d", groupID, userID)
	token := uuid.New().String()
	ok, err := svc.cache.SetNX(ctx, key, token, lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() { _ = svc.cache.Del(context.Background(), key) }, nil
}

// SetRequired sets the XP threshold for a rank. Owner-gated.
func (svc *Service) SetRequired(ctx context.Context, actorDiscordID, guildID string, rankID int, xpAmount int64) error {
	if err := svc.perm.Authorize(ctx, actorDiscordID, guildID, perm.LevelOwner); err != nil {
		return err
	}
	var existing model.RequiredXP
	err := svc.db.WithContext(ctx).
		Where("guild_id = ? AND rank_id = ?", guildID, rankID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec := model.RequiredXP{GuildID: guildID, RankID: rankID, XP: xpAmount}
		return svc.db.WithContext(ctx).Create(&rec).Error
	}
	if err != nil {
		return err
	}
	existing.XP = xpAmount
	return svc.db.WithContext(ctx).Save(&existing).Error
}

// Required returns the guild's rank → required XP table.
func (svc *Service) Required(ctx context.Context, guildID string) (map[int]int64, error) {
	var rows []model.RequiredXP
	if err := svc.db.WithContext(ctx).Where("guild_id = ?", guildID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[int]int64, len(rows))
	for _, r := range rows {
		out[r.RankID] = r.XP
	}
	return out, nil
}
