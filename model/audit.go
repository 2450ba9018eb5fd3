package model

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions recorded by this service.
const (
	AuditJoinedGroup    = "joined_group"
	AuditDeclinedJoin   = "declined_join_request"
	AuditRankChanged    = "rank_changed"
	AuditXPAdjusted     = "xp_adjusted"
	AuditAutoPromoted   = "auto_promoted"
)

// AuditLog is an append-only record of a privileged action. Rows are never
// updated or deleted.
type AuditLog struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID      string         `gorm:"index:idx_audit_trace;size:36" json:"trace_id"`
	RobloxUserID int64          `gorm:"index:idx_audit_user" json:"roblox_user_id"`
	GroupID      int64          `json:"group_id"`
	Action       string         `gorm:"size:64;not null" json:"action"`
	PerformedBy  string         `gorm:"size:32" json:"performed_by"` // acting Discord user ID
	Detail       datatypes.JSON `json:"detail"`
	CreatedAt    time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
