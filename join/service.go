// Package join gates group join requests behind a per-guild admission
// policy: minimum account age and required prior group memberships. Once
// the provider has accepted a request, admission is committed — follow-up
// bookkeeping failures are surfaced but never rolled back.
package join

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yorumine/groupwarden/audit"
	"github.com/yorumine/groupwarden/events"
	"github.com/yorumine/groupwarden/model"
	"github.com/yorumine/groupwarden/perm"
	"github.com/yorumine/groupwarden/roblox"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrUnknownUser is returned when the username does not resolve.
	ErrUnknownUser = errors.New("join: unknown user")
	// ErrNoPendingRequest is returned when the target has no open join
	// request in the group's pending set.
	ErrNoPendingRequest = errors.New("join: no pending join request for this user")
)

// AgeTooLowError rejects an accept because the account is too young.
type AgeTooLowError struct {
	ActualDays   int
	RequiredDays int
}

func (e *AgeTooLowError) Error() string {
	return fmt.Sprintf("join: account age is %d days, but %d days is required", e.ActualDays, e.RequiredDays)
}

// MissingGroupsError rejects an accept because the user is missing one or
// more required groups. Lists every missing group, not just the first.
type MissingGroupsError struct {
	GroupIDs []int64
}

func (e *MissingGroupsError) Error() string {
	ids := make([]string, len(e.GroupIDs))
	for i, id := range e.GroupIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return "join: user is not in required groups: " + strings.Join(ids, ", ")
}

// PostAdmissionError reports a bookkeeping failure after admission was
// committed with the provider. The user IS in the group.
type PostAdmissionError struct {
	Step string
	Err  error
}

func (e *PostAdmissionError) Error() string {
	return fmt.Sprintf("join: admitted, but %s failed: %v", e.Step, e.Err)
}

func (e *PostAdmissionError) Unwrap() error { return e.Err }

// Service is the join admission gate.
type Service struct {
	db       *gorm.DB
	provider roblox.Provider
	perm     *perm.Resolver
	audit    *audit.Service
	events   *events.Publisher
	logger   *zap.Logger
}

// NewService creates a join Service.
func NewService(db *gorm.DB, provider roblox.Provider, resolver *perm.Resolver, auditSvc *audit.Service, pub *events.Publisher, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		provider: provider,
		perm:     resolver,
		audit:    auditSvc,
		events:   pub,
		logger:   logger,
	}
}

// Accept admits a pending joiner after the policy gates pass, in order:
// pending request exists, account age, required groups. First failure wins.
// Requires Officer.
func (svc *Service) Accept(ctx context.Context, actorDiscordID, guildID, username string) error {
	if err := svc.perm.Authorize(ctx, actorDiscordID, guildID, perm.LevelOfficer); err != nil {
		return err
	}
	groupID, err := svc.perm.MainGroupID(ctx, guildID)
	if err != nil {
		return err
	}
	userID, err := svc.resolveUser(ctx, username)
	if err != nil {
		return err
	}
	if err := svc.requirePending(ctx, groupID, userID); err != nil {
		return err
	}

	settings, requiredGroups, err := svc.loadSettings(ctx, guildID)
	if err != nil {
		return err
	}

	info, err := svc.provider.GetUserInfo(ctx, userID)
	if err != nil {
		return err
	}
	if settings.MinimumAgeDays != nil {
		if age := info.AgeDays(); age < *settings.MinimumAgeDays {
			return &AgeTooLowError{ActualDays: age, RequiredDays: *settings.MinimumAgeDays}
		}
	}
	if len(requiredGroups) > 0 {
		memberships, err := svc.provider.GetGroupMemberships(ctx, userID)
		if err != nil {
			return err
		}
		member := make(map[int64]bool, len(memberships))
		for _, id := range memberships {
			member[id] = true
		}
		var missing []int64
		for _, rg := range requiredGroups {
			if !member[rg.GroupID] {
				missing = append(missing, rg.GroupID)
			}
		}
		if len(missing) > 0 {
			return &MissingGroupsError{GroupIDs: missing}
		}
	}

	// Commit point: from here the user is in the group.
	if err := svc.provider.ResolveJoinRequest(ctx, groupID, userID, true); err != nil {
		return err
	}

	joinedAt := time.Now()
	profile := model.RobloxProfile{
		RobloxUserID: userID,
		Username:     info.Username,
		DisplayName:  displayName(info),
		ProfileURL:   roblox.ProfileURL(userID),
	}
	if err := svc.db.WithContext(ctx).Save(&profile).Error; err != nil {
		return &PostAdmissionError{Step: "profile snapshot", Err: err}
	}
	membership := model.GroupMembership{RobloxUserID: userID, GroupID: groupID, JoinedAt: joinedAt}
	if err := svc.db.WithContext(ctx).Save(&membership).Error; err != nil {
		return &PostAdmissionError{Step: "membership record", Err: err}
	}

	svc.audit.Log(audit.Entry{
		RobloxUserID: userID,
		GroupID:      groupID,
		Action:       model.AuditJoinedGroup,
		PerformedBy:  actorDiscordID,
	})
	svc.events.Publish(ctx, events.Event{
		Type:         events.TypeJoinAccepted,
		GuildID:      guildID,
		GroupID:      groupID,
		RobloxUserID: userID,
		Detail:       map[string]interface{}{"username": info.Username},
	})
	svc.logger.Info("join request accepted",
		zap.String("guild_id", guildID),
		zap.Int64("group_id", groupID),
		zap.Int64("roblox_user_id", userID))
	return nil
}

// Decline rejects a pending join request. No policy gates beyond the
// request existing. Requires Officer.
func (svc *Service) Decline(ctx context.Context, actorDiscordID, guildID, username string) error {
	if err := svc.perm.Authorize(ctx, actorDiscordID, guildID, perm.LevelOfficer); err != nil {
		return err
	}
	groupID, err := svc.perm.MainGroupID(ctx, guildID)
	if err != nil {
		return err
	}
	userID, err := svc.resolveUser(ctx, username)
	if err != nil {
		return err
	}
	if err := svc.requirePending(ctx, groupID, userID); err != nil {
		return err
	}

	if err := svc.provider.ResolveJoinRequest(ctx, groupID, userID, false); err != nil {
		return err
	}

	svc.audit.Log(audit.Entry{
		RobloxUserID: userID,
		GroupID:      groupID,
		Action:       model.AuditDeclinedJoin,
		PerformedBy:  actorDiscordID,
	})
	svc.events.Publish(ctx, events.Event{
		Type:         events.TypeJoinDeclined,
		GuildID:      guildID,
		GroupID:      groupID,
		RobloxUserID: userID,
	})
	return nil
}

// PendingDetail describes one pending join request against the guild's
// current policy, for review before accepting.
type PendingDetail struct {
	Username       string  `json:"username"`
	RobloxUserID   int64   `json:"roblox_user_id"`
	AgeDays        int     `json:"age_days"`
	RequiredDays   *int    `json:"required_days,omitempty"`
	RequiredGroups []int64 `json:"required_groups,omitempty"`
}

// Check returns the pending request detail for one user without resolving
// it. Requires Officer.
func (svc *Service) Check(ctx context.Context, actorDiscordID, guildID, username string) (*PendingDetail, error) {
	if err := svc.perm.Authorize(ctx, actorDiscordID, guildID, perm.LevelOfficer); err != nil {
		return nil, err
	}
	groupID, err := svc.perm.MainGroupID(ctx, guildID)
	if err != nil {
		return nil, err
	}
	userID, err := svc.resolveUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := svc.requirePending(ctx, groupID, userID); err != nil {
		return nil, err
	}

	info, err := svc.provider.GetUserInfo(ctx, userID)
	if err != nil {
		return nil, err
	}
	settings, requiredGroups, err := svc.loadSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	detail := &PendingDetail{
		Username:     info.Username,
		RobloxUserID: userID,
		AgeDays:      info.AgeDays(),
		RequiredDays: settings.MinimumAgeDays,
	}
	for _, rg := range requiredGroups {
		detail.RequiredGroups = append(detail.RequiredGroups, rg.GroupID)
	}
	return detail, nil
}

// List returns the usernames with pending join requests. Requires Officer.
func (svc *Service) List(ctx context.Context, actorDiscordID, guildID string) ([]string, error) {
	if err := svc.perm.Authorize(ctx, actorDiscordID, guildID, perm.LevelOfficer); err != nil {
		return nil, err
	}
	groupID, err := svc.perm.MainGroupID(ctx, guildID)
	if err != nil {
		return nil, err
	}
	requests, err := svc.provider.ListJoinRequests(ctx, groupID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(requests))
	for _, r := range requests {
		names = append(names, r.Username)
	}
	return names, nil
}

// SettingsView is the guild's admission policy for display.
type SettingsView struct {
	MinimumAgeDays *int    `json:"minimum_age_days"`
	RequiredGroups []int64 `json:"required_groups"`
}

// Settings returns the guild's admission policy. Requires Officer.
func (svc *Service) Settings(ctx context.Context, actorDiscordID, guildID string) (*SettingsView, error) {
	if err := svc.perm.Authorize(ctx, actorDiscordID, guildID, perm.LevelOfficer); err != nil {
		return nil, err
	}
	settings, requiredGroups, err := svc.loadSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	view := &SettingsView{MinimumAgeDays: settings.MinimumAgeDays, RequiredGroups: []int64{}}
	for _, rg := range requiredGroups {
		view.RequiredGroups = append(view.RequiredGroups, rg.GroupID)
	}
	return view, nil
}

// SetMinimumAge sets the minimum account age gate in days. Owner-gated.
// Setting the same value again is a no-op, not an error.
func (svc *Service) SetMinimumAge(ctx context.Context, actorDiscordID, guildID string, days int) error {
	if err := svc.perm.Authorize(ctx, actorDiscordID, guildID, perm.LevelOwner); err != nil {
		return err
	}
	settings := model.JoinSettings{GuildID: guildID, MinimumAgeDays: &days}
	return svc.db.WithContext(ctx).Save(&settings).Error
}

// AddRequiredGroup adds a group the joiner must already belong to.
// Owner-gated; adding a group already present is a no-op.
func (svc *Service) AddRequiredGroup(ctx context.Context, actorDiscordID, guildID string, groupID int64) error {
	if err := svc.perm.Authorize(ctx, actorDiscordID, guildID, perm.LevelOwner); err != nil {
		return err
	}
	var existing model.RequiredGroup
	err := svc.db.WithContext(ctx).
		Where("guild_id = ? AND group_id = ?", guildID, groupID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	rec := model.RequiredGroup{GuildID: guildID, GroupID: groupID}
	return svc.db.WithContext(ctx).Create(&rec).Error
}

// RemoveRequiredGroup removes a required group. Owner-gated; removing a
// group that is not configured is a no-op.
func (svc *Service) RemoveRequiredGroup(ctx context.Context, actorDiscordID, guildID string, groupID int64) error {
	if err := svc.perm.Authorize(ctx, actorDiscordID, guildID, perm.LevelOwner); err != nil {
		return err
	}
	return svc.db.WithContext(ctx).
		Where("guild_id = ? AND group_id = ?", guildID, groupID).
		Delete(&model.RequiredGroup{}).Error
}

func (svc *Service) resolveUser(ctx context.Context, username string) (int64, error) {
	userID, err := svc.provider.ResolveUserID(ctx, username)
	if errors.Is(err, roblox.ErrUserNotFound) {
		return 0, ErrUnknownUser
	}
	if err != nil {
		return 0, err
	}
	return userID, nil
}

func (svc *Service) requirePending(ctx context.Context, groupID, userID int64) error {
	requests, err := svc.provider.ListJoinRequests(ctx, groupID)
	if err != nil {
		return err
	}
	for _, r := range requests {
		if r.UserID == userID {
			return nil
		}
	}
	return ErrNoPendingRequest
}

func (svc *Service) loadSettings(ctx context.Context, guildID string) (*model.JoinSettings, []model.RequiredGroup, error) {
	var settings model.JoinSettings
	err := svc.db.WithContext(ctx).Where("guild_id = ?", guildID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = model.JoinSettings{GuildID: guildID}
	} else if err != nil {
		return nil, nil, err
	}
	var requiredGroups []model.RequiredGroup
	if err := svc.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("group_id").
		Find(&requiredGroups).Error; err != nil {
		return nil, nil, err
	}
	return &settings, requiredGroups, nil
}

func displayName(info *roblox.UserInfo) string {
	if info.DisplayName != "" {
		return info.DisplayName
	}
	return info.Username
}
