package model

import "time"

// XPRecord tracks a member's accumulated XP within one Roblox group.
// XP never goes negative; removals clamp at zero.
type XPRecord struct {
	RobloxUserID int64     `gorm:"primaryKey" json:"roblox_user_id"`
	GroupID      int64     `gorm:"primaryKey" json:"group_id"`
	XP           int64     `gorm:"default:0" json:"xp"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GroupMembership records when a user was admitted into a group through
// the join-request gate.
type GroupMembership struct {
	RobloxUserID int64     `gorm:"primaryKey" json:"roblox_user_id"`
	GroupID      int64     `gorm:"primaryKey" json:"group_id"`
	JoinedAt     time.Time `json:"joined_at"`
}
