// Package rank validates and executes promote/demote/set-rank transitions
// against the group's role sequence and the acting member's own rank. A
// successful call performs exactly one provider mutation; any validation
// failure performs none.
package rank

import (
	"context"
	"errors"

	"github.com/yorumine/groupwarden/audit"
	"github.com/yorumine/groupwarden/events"
	"github.com/yorumine/groupwarden/identity"
	"github.com/yorumine/groupwarden/model"
	"github.com/yorumine/groupwarden/perm"
	"github.com/yorumine/groupwarden/roblox"
	"go.uber.org/zap"
)

var (
	// ErrSelfAction is returned when the target resolves to the actor.
	ErrSelfAction = errors.New("rank: cannot perform this action on yourself")
	// ErrAtCeiling is returned when the target is already at the highest role.
	ErrAtCeiling = errors.New("rank: target is already at the highest rank")
	// ErrAtFloor is returned when the target is already at the lowest role.
	ErrAtFloor = errors.New("rank: target is already at the lowest rank")
	// ErrInsufficientAuthority is returned when the transition would leave
	// the target at or above the actor's own rank.
	ErrInsufficientAuthority = errors.New("rank: resulting rank would be equal to or higher than yours")
	// ErrInvalidInput is returned when a required rank ID is missing.
	ErrInvalidInput = errors.New("rank: a rank id is required")
)

// Service is the rank transition engine.
type Service struct {
	provider roblox.Provider
	perm     *perm.Resolver
	linker   *identity.Linker
	audit    *audit.Service
	events   *events.Publisher
	logger   *zap.Logger
}

// NewService creates a rank Service.
func NewService(provider roblox.Provider, resolver *perm.Resolver, linker *identity.Linker, auditSvc *audit.Service, pub *events.Publisher, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		perm:     resolver,
		linker:   linker,
		audit:    auditSvc,
		events:   pub,
		logger:   logger,
	}
}

// Result is the outcome of a successful transition.
type Result struct {
	Username     string      `json:"username"`
	RobloxUserID int64       `json:"roblox_user_id"`
	NewRole      roblox.Role `json:"new_role"`
}

// Promote moves the target one role up. Requires Officer.
func (svc *Service) Promote(ctx context.Context, actorDiscordID, guildID, username string) (*Result, error) {
	return svc.step(ctx, actorDiscordID, guildID, username, +1)
}

// Demote moves the target one role down. Requires Officer.
func (svc *Service) Demote(ctx context.Context, actorDiscordID, guildID, username string) (*Result, error) {
	return svc.step(ctx, actorDiscordID, guildID, username, -1)
}

func (svc *Service) step(ctx context.Context, actorDiscordID, guildID, username string, delta int) (*Result, error) {
	if err := svc.perm.Authorize(ctx, actorDiscordID, guildID, perm.LevelOfficer); err != nil {
		return nil, err
	}

	actor, err := svc.perm.Actor(ctx, actorDiscordID, guildID)
	if err != nil {
		return nil, err
	}
	userID, err := svc.provider.ResolveUserID(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := svc.checkSelfAction(ctx, actorDiscordID, userID); err != nil {
		return nil, err
	}

	roles, err := svc.provider.GetRoles(ctx, actor.GroupID)
	if err != nil {
		return nil, err
	}
	current, err := svc.provider.GetRankInGroup(ctx, actor.GroupID, userID)
	if err != nil {
		return nil, err
	}
	idx := roleIndex(roles, current)

	next := idx + delta
	if delta > 0 && (idx == -1 || next >= len(roles)) {
		return nil, ErrAtCeiling
	}
	if delta < 0 && (idx == -1 || next < 0) {
		return nil, ErrAtFloor
	}
	target := roles[next]
	// Strict: a transition may never grant parity with or superiority over
	// the actor.
	if target.Rank >= actor.Rank {
		return nil, ErrInsufficientAuthority
	}

	var newRole *roblox.Role
	if delta > 0 {
		newRole, err = svc.provider.Promote(ctx, actor.GroupID, userID)
	} else {
		newRole, err = svc.provider.Demote(ctx, actor.GroupID, userID)
	}
	if err != nil {
		return nil, err
	}

	svc.finish(ctx, actorDiscordID, guildID, actor.GroupID, userID, current, newRole, methodName(delta))
	return &Result{Username: username, RobloxUserID: userID, NewRole: *newRole}, nil
}

// SetRank assigns an explicit rank to the target. Requires HICOM. Unlike
// Promote/Demote there is no ceiling check against the role table; only the
// actor-parity rule applies.
func (svc *Service) SetRank(ctx context.Context, actorDiscordID, guildID, username string, rankID *int) (*Result, error) {
	if err := svc.perm.Authorize(ctx, actorDiscordID, guildID, perm.LevelHICOM); err != nil {
		return nil, err
	}
	if rankID == nil {
		return nil, ErrInvalidInput
	}

	actor, err := svc.perm.Actor(ctx, actorDiscordID, guildID)
	if err != nil {
		return nil, err
	}
	userID, err := svc.provider.ResolveUserID(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := svc.checkSelfAction(ctx, actorDiscordID, userID); err != nil {
		return nil, err
	}
	if *rankID >= actor.Rank {
		return nil, ErrInsufficientAuthority
	}

	current, err := svc.provider.GetRankInGroup(ctx, actor.GroupID, userID)
	if err != nil {
		return nil, err
	}
	if err := svc.provider.SetRank(ctx, actor.GroupID, userID, *rankID); err != nil {
		return nil, err
	}

	newRole := &roblox.Role{Rank: *rankID}
	svc.finish(ctx, actorDiscordID, guildID, actor.GroupID, userID, current, newRole, "set")
	return &Result{Username: username, RobloxUserID: userID, NewRole: *newRole}, nil
}

// checkSelfAction denies the operation when the target's linked Discord
// identity is the actor. Unlinked targets pass.
func (svc *Service) checkSelfAction(ctx context.Context, actorDiscordID string, targetRobloxID int64) error {
	acc, err := svc.linker.ByRoblox(ctx, targetRobloxID)
	if errors.Is(err, identity.ErrNotLinked) {
		return nil
	}
	if err != nil {
		return err
	}
	if acc.DiscordUserID == actorDiscordID {
		return ErrSelfAction
	}
	return nil
}

func (svc *Service) finish(ctx context.Context, actorDiscordID, guildID string, groupID, userID int64, oldRank int, newRole *roblox.Role, method string) {
	svc.audit.Log(audit.Entry{
		RobloxUserID: userID,
		GroupID:      groupID,
		Action:       model.AuditRankChanged,
		PerformedBy:  actorDiscordID,
		Detail: map[string]interface{}{
			"method":   method,
			"old_rank": oldRank,
			"new_rank": newRole.Rank,
			"new_role": newRole.Name,
		},
	})
	svc.events.Publish(ctx, events.Event{
		Type:         events.TypeRankChanged,
		GuildID:      guildID,
		GroupID:      groupID,
		RobloxUserID: userID,
		Detail: map[string]interface{}{
			"method":   method,
			"new_rank": newRole.Rank,
			"new_role": newRole.Name,
		},
	})
	svc.logger.Info("rank changed",
		zap.String("guild_id", guildID),
		zap.Int64("group_id", groupID),
		zap.Int64("roblox_user_id", userID),
		zap.String("method", method),
		zap.Int("new_rank", newRole.Rank))
}

func roleIndex(roles []roblox.Role, rank int) int {
	for i, r := range roles {
		if r.Rank == rank {
			return i
		}
	}
	return -1
}

func methodName(delta int) string {
	if delta > 0 {
		return "promote"
	}
	return "demote"
}
