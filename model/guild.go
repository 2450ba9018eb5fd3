package model

import "time"

// GuildConfig binds a Discord guild to its main Roblox group.
// Every rank/XP/join operation requires this row to exist.
type GuildConfig struct {
	GuildID     string    `gorm:"primaryKey;size:32" json:"guild_id"`
	MainGroupID int64     `gorm:"not null" json:"main_group_id"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PermissionGrant authorizes one group rank at one permission level.
// A guild's full permission config is the set of its grant rows.
type PermissionGrant struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID   string    `gorm:"uniqueIndex:uq_perm_grant;index:idx_perm_guild;size:32;not null" json:"guild_id"`
	Level     string    `gorm:"uniqueIndex:uq_perm_grant;size:16;not null" json:"level"`
	RankID    int       `gorm:"uniqueIndex:uq_perm_grant;not null" json:"rank_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RequiredXP is the XP threshold a member must reach before being
// auto-promoted into the rank.
type RequiredXP struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID string `gorm:"uniqueIndex:uq_required_xp;size:32;not null" json:"guild_id"`
	RankID  int    `gorm:"uniqueIndex:uq_required_xp;not null" json:"rank_id"`
	XP      int64  `gorm:"not null" json:"xp"`
}

// JoinSettings holds a guild's join-request admission policy.
// A nil MinimumAgeDays means the age gate is disabled.
type JoinSettings struct {
	GuildID        string    `gorm:"primaryKey;size:32" json:"guild_id"`
	MinimumAgeDays *int      `json:"minimum_age_days"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// RequiredGroup is one Roblox group a joiner must already be a member of.
type RequiredGroup struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID string `gorm:"uniqueIndex:uq_required_group;size:32;not null" json:"guild_id"`
	GroupID int64  `gorm:"uniqueIndex:uq_required_group;not null" json:"group_id"`
}
