// Package roblox talks to the Roblox web APIs that hold group membership,
// rank, and account data. Everything above this package depends only on the
// Provider interface.
package roblox

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUserNotFound is returned when a username or user ID does not resolve.
var ErrUserNotFound = errors.New("roblox: user not found")

// Role is one rank within a group, as reported by Roblox. Rank is the
// 0-255 seniority value; higher is more senior.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// UserInfo is a user's public profile.
type UserInfo struct {
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// AgeDays returns the account age in whole days.
func (u *UserInfo) AgeDays() int {
	return int(time.Since(u.CreatedAt).Hours() / 24)
}

// JoinRequest is a pending request to join a group.
type JoinRequest struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Provider is the external group provider contract. Rank and role data is
// always fetched fresh; implementations must not cache it.
type Provider interface {
	// ResolveUserID maps a username to a user ID. Returns ErrUserNotFound
	// if no such user exists.
	ResolveUserID(ctx context.Context, username string) (int64, error)
	// GetUserInfo returns the public profile, including the account
	// creation time used for the age gate.
	GetUserInfo(ctx context.Context, userID int64) (*UserInfo, error)
	// GetRankInGroup returns the user's rank value in the group, 0 if the
	// user is not a member.
	GetRankInGroup(ctx context.Context, groupID, userID int64) (int, error)
	// GetRoles returns the group's roles ordered ascending by rank value.
	GetRoles(ctx context.Context, groupID int64) ([]Role, error)
	// GetGroupMemberships returns the IDs of every group the user is in.
	GetGroupMemberships(ctx context.Context, userID int64) ([]int64, error)
	// SetRank assigns the role with the given rank value to the user.
	SetRank(ctx context.Context, groupID, userID int64, rank int) error
	// Promote moves the user one role up and returns the new role.
	Promote(ctx context.Context, groupID, userID int64) (*Role, error)
	// Demote moves the user one role down and returns the new role.
	Demote(ctx context.Context, groupID, userID int64) (*Role, error)
	// ListJoinRequests returns the group's pending join requests.
	ListJoinRequests(ctx context.Context, groupID int64) ([]JoinRequest, error)
	// ResolveJoinRequest accepts or declines a pending join request.
	ResolveJoinRequest(ctx context.Context, groupID, userID int64, accept bool) error
}

// ProfileURL returns the public profile page for a user.
func ProfileURL(userID int64) string {
	return fmt.Sprintf("https://www.roblox.com/users/%d/profile", userID)
}
