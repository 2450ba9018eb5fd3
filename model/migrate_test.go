package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorumine/groupwarden/model"
	"github.com/yorumine/groupwarden/testutil"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// Operator
	op := &model.Operator{Username: "test_op", PasswordHash: "hash", Status: 1}
	require.NoError(t, db.Create(op).Error)
	assert.Greater(t, op.ID, int64(0))

	var found model.Operator
	require.NoError(t, db.First(&found, op.ID).Error)
	assert.Equal(t, "test_op", found.Username)

	// LinkedAccount
	link := &model.LinkedAccount{DiscordUserID: "d1", RobloxUserID: 1000, RobloxUsername: "Alice"}
	require.NoError(t, db.Create(link).Error)

	// GuildConfig
	guild := &model.GuildConfig{GuildID: "g1", MainGroupID: 100}
	require.NoError(t, db.Create(guild).Error)

	// PermissionGrant
	grant := &model.PermissionGrant{GuildID: "g1", Level: "Officer", RankID: 30}
	require.NoError(t, db.Create(grant).Error)

	// RequiredXP / JoinSettings / RequiredGroup
	days := 30
	require.NoError(t, db.Create(&model.RequiredXP{GuildID: "g1", RankID: 30, XP: 100}).Error)
	require.NoError(t, db.Create(&model.JoinSettings{GuildID: "g1", MinimumAgeDays: &days}).Error)
	require.NoError(t, db.Create(&model.RequiredGroup{GuildID: "g1", GroupID: 555}).Error)

	// XPRecord / GroupMembership
	require.NoError(t, db.Create(&model.XPRecord{RobloxUserID: 1000, GroupID: 100, XP: 42}).Error)
	require.NoError(t, db.Create(&model.GroupMembership{RobloxUserID: 1000, GroupID: 100, JoinedAt: time.Now()}).Error)

	// RobloxProfile
	require.NoError(t, db.Create(&model.RobloxProfile{RobloxUserID: 1000, Username: "Alice"}).Error)

	// AuditLog
	al := &model.AuditLog{TraceID: "trace-001", Action: model.AuditRankChanged}
	require.NoError(t, db.Create(al).Error)
}

func TestLinkedAccount_UniqueIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)

	require.NoError(t, db.Create(&model.LinkedAccount{DiscordUserID: "d1", RobloxUserID: 1000}).Error)
	assert.Error(t, db.Create(&model.LinkedAccount{DiscordUserID: "d1", RobloxUserID: 2000}).Error)
	assert.Error(t, db.Create(&model.LinkedAccount{DiscordUserID: "d2", RobloxUserID: 1000}).Error)
}

func TestPermissionGrant_UniquePerLevelAndRank(t *testing.T) {
	db := testutil.SetupTestDB(t)

	require.NoError(t, db.Create(&model.PermissionGrant{GuildID: "g1", Level: "NCO", RankID: 10}).Error)
	assert.Error(t, db.Create(&model.PermissionGrant{GuildID: "g1", Level: "NCO", RankID: 10}).Error)
	// Same rank at another level is allowed.
	require.NoError(t, db.Create(&model.PermissionGrant{GuildID: "g1", Level: "Officer", RankID: 10}).Error)
}
