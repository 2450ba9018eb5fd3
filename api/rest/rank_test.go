package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorumine/groupwarden/audit"
	"github.com/yorumine/groupwarden/events"
	"github.com/yorumine/groupwarden/identity"
	"github.com/yorumine/groupwarden/join"
	"github.com/yorumine/groupwarden/model"
	"github.com/yorumine/groupwarden/perm"
	"github.com/yorumine/groupwarden/rank"
	"github.com/yorumine/groupwarden/roblox"
	"github.com/yorumine/groupwarden/testutil"
	"github.com/yorumine/groupwarden/xp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func nop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

const (
	testGuild = "guild-1"
	testGroup = int64(100)
)

// testEnv wires the full service stack against in-memory backends and
// exposes a router with the guild routes mounted, auth middleware omitted.
type testEnv struct {
	db     *gorm.DB
	stub   *roblox.Stub
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	stub := roblox.NewStub()
	linker := identity.NewLinker(db)
	resolver := perm.NewResolver(db, stub, linker, nop())
	auditSvc := audit.New(db, nop())
	t.Cleanup(func() { auditSvc.Stop(context.Background()) })
	pub := events.NewPublisher(ps, nop())

	rankSvc := rank.NewService(stub, resolver, linker, auditSvc, pub, nop())
	xpSvc := xp.NewService(db, c, stub, resolver, auditSvc, pub, nop())
	joinSvc := join.NewService(db, stub, resolver, auditSvc, pub, nop())

	rankH := NewRankHandler(rankSvc)
	xpH := NewXPHandler(xpSvc)
	joinH := NewJoinHandler(joinSvc)
	permH := NewPermHandler(resolver)

	r := gin.New()
	g := r.Group("/api/guilds")
	g.POST("/:gid/rank/promote", rankH.Promote)
	g.POST("/:gid/rank/demote", rankH.Demote)
	g.POST("/:gid/rank/set", rankH.SetRank)
	g.POST("/:gid/xp", xpH.Adjust)
	g.PUT("/:gid/xp/required", xpH.SetRequired)
	g.GET("/:gid/xp/required", xpH.Required)
	g.POST("/:gid/join/accept", joinH.Accept)
	g.POST("/:gid/join/decline", joinH.Decline)
	g.GET("/:gid/join/pending", joinH.List)
	g.GET("/:gid/join/pending/:username", joinH.Check)
	g.GET("/:gid/join/settings", joinH.Settings)
	g.PUT("/:gid/join/settings/age", joinH.SetMinimumAge)
	g.POST("/:gid/join/required-groups", joinH.AddRequiredGroup)
	g.DELETE("/:gid/join/required-groups", joinH.RemoveRequiredGroup)
	g.GET("/:gid/permissions", permH.Levels)
	g.POST("/:gid/permissions", permH.Grant)
	g.DELETE("/:gid/permissions", permH.Revoke)

	require.NoError(t, db.Create(&model.GuildConfig{GuildID: testGuild, MainGroupID: testGroup}).Error)
	stub.GroupRoles[testGroup] = []roblox.Role{
		{ID: 1, Name: "Recruit", Rank: 10},
		{ID: 2, Name: "Private", Rank: 20},
		{ID: 3, Name: "Corporal", Rank: 30},
		{ID: 4, Name: "Sergeant", Rank: 40},
		{ID: 5, Name: "Commander", Rank: 50},
	}
	_, err := resolver.SeedGrant(context.Background(), testGuild, perm.LevelOwner, 50)
	require.NoError(t, err)
	_, err = resolver.SeedGrant(context.Background(), testGuild, perm.LevelOfficer, 30)
	require.NoError(t, err)

	return &testEnv{db: db, stub: stub, router: r}
}

func (e *testEnv) member(t *testing.T, discordID, username string, robloxID int64, rankValue int) {
	t.Helper()
	if discordID != "" {
		require.NoError(t, e.db.Create(&model.LinkedAccount{
			DiscordUserID: discordID,
			RobloxUserID:  robloxID,
		}).Error)
	}
	e.stub.UsersByName[username] = robloxID
	e.stub.SetRankOf(testGroup, robloxID, rankValue)
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestPromoteEndpoint_OK(t *testing.T) {
	e := newTestEnv(t)
	e.member(t, "actor", "Alice", 1000, 50)
	e.member(t, "", "Bob", 2000, 20)

	w := e.request(t, http.MethodPost, "/api/guilds/guild-1/rank/promote",
		gin.H{"actor": "actor", "username": "Bob"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res rank.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Bob", res.Username)
	assert.Equal(t, 30, res.NewRole.Rank)
}

func TestPromoteEndpoint_MissingActor(t *testing.T) {
	e := newTestEnv(t)
	w := e.request(t, http.MethodPost, "/api/guilds/guild-1/rank/promote",
		gin.H{"username": "Bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPromoteEndpoint_Unauthorized(t *testing.T) {
	e := newTestEnv(t)
	e.member(t, "actor", "Alice", 1000, 20) // no grant for rank 20
	e.member(t, "", "Bob", 2000, 10)

	w := e.request(t, http.MethodPost, "/api/guilds/guild-1/rank/promote",
		gin.H{"actor": "actor", "username": "Bob"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPromoteEndpoint_Ceiling(t *testing.T) {
	e := newTestEnv(t)
	e.member(t, "actor", "Alice", 1000, 50)
	e.member(t, "", "Bob", 2000, 50)

	w := e.request(t, http.MethodPost, "/api/guilds/guild-1/rank/promote",
		gin.H{"actor": "actor", "username": "Bob"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPromoteEndpoint_UnknownUser(t *testing.T) {
	e := newTestEnv(t)
	e.member(t, "actor", "Alice", 1000, 50)

	w := e.request(t, http.MethodPost, "/api/guilds/guild-1/rank/promote",
		gin.H{"actor": "actor", "username": "Ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDemoteEndpoint_Floor(t *testing.T) {
	e := newTestEnv(t)
	e.member(t, "actor", "Alice", 1000, 50)
	e.member(t, "", "Bob", 2000, 10)

	w := e.request(t, http.MethodPost, "/api/guilds/guild-1/rank/demote",
		gin.H{"actor": "actor", "username": "Bob"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSetRankEndpoint_OK(t *testing.T) {
	e := newTestEnv(t)
	e.member(t, "actor", "Alice", 1000, 50)
	e.member(t, "", "Bob", 2000, 10)

	w := e.request(t, http.MethodPost, "/api/guilds/guild-1/rank/set",
		gin.H{"actor": "actor", "username": "Bob", "rank_id": 40})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, _ := e.stub.GetRankInGroup(context.Background(), testGroup, 2000)
	assert.Equal(t, 40, got)
}

func TestSetRankEndpoint_MissingRankID(t *testing.T) {
	e := newTestEnv(t)
	e.member(t, "actor", "Alice", 1000, 50)
	e.member(t, "", "Bob", 2000, 10)

	w := e.request(t, http.MethodPost, "/api/guilds/guild-1/rank/set",
		gin.H{"actor": "actor", "username": "Bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetRankEndpoint_SelfAction(t *testing.T) {
	e := newTestEnv(t)
	e.member(t, "actor", "Alice", 1000, 50)

	w := e.request(t, http.MethodPost, "/api/guilds/guild-1/rank/set",
		gin.H{"actor": "actor", "username": "Alice", "rank_id": 10})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
