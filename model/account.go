package model

import "time"

// Operator is a dashboard/bot API login account.
type Operator struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:32;not null" json:"username"`
	PasswordHash string     `gorm:"size:64;not null" json:"-"`
	Status       int        `gorm:"default:1" json:"status"` // 0=disabled 1=active
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	LastLoginIP  string     `gorm:"size:45" json:"last_login_ip"`
}

// LinkedAccount maps a Discord user to their verified Roblox account.
// Rows are created by the verification flow; this service only reads them.
type LinkedAccount struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DiscordUserID  string    `gorm:"uniqueIndex;size:32;not null" json:"discord_user_id"`
	RobloxUserID   int64     `gorm:"uniqueIndex;not null" json:"roblox_user_id"`
	RobloxUsername string    `gorm:"size:64" json:"roblox_username"`
	DisplayName    string    `gorm:"size:64" json:"display_name"`
	VerifiedAt     time.Time `gorm:"autoCreateTime" json:"verified_at"`
}

// RobloxProfile is a snapshot of a Roblox user's public profile, saved when
// the user is admitted into a group. Unlike LinkedAccount it does not imply
// a Discord link.
type RobloxProfile struct {
	RobloxUserID int64     `gorm:"primaryKey" json:"roblox_user_id"`
	Username     string    `gorm:"size:64" json:"username"`
	DisplayName  string    `gorm:"size:64" json:"display_name"`
	ProfileURL   string    `gorm:"size:128" json:"profile_url"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
