package rest

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelsEndpoint(t *testing.T) {
	e := newTestEnv(t)

	w := e.request(t, http.MethodGet, "/api/guilds/guild-1/permissions", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Levels map[string][]int `json:"levels"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []int{50}, body.Levels["Owner"])
	assert.Equal(t, []int{30}, body.Levels["Officer"])
}

func TestGrantEndpoint_OwnerOnly(t *testing.T) {
	e := newTestEnv(t)
	e.member(t, "owner", "Alice", 1000, 50)
	e.member(t, "officer", "Carol", 3000, 30)

	w := e.request(t, http.MethodPost, "/api/guilds/guild-1/permissions",
		gin.H{"actor": "officer", "level": "NCO", "rank_id": 20})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.request(t, http.MethodPost, "/api/guilds/guild-1/permissions",
		gin.H{"actor": "owner", "level": "NCO", "rank_id": 20})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Changed bool `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Changed)
}

func TestGrantEndpoint_BadLevel(t *testing.T) {
	e := newTestEnv(t)
	e.member(t, "owner", "Alice", 1000, 50)

	w := e.request(t, http.MethodPost, "/api/guilds/guild-1/permissions",
		gin.H{"actor": "owner", "level": "Emperor", "rank_id": 20})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRevokeEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.member(t, "owner", "Alice", 1000, 50)

	w := e.request(t, http.MethodDelete, "/api/guilds/guild-1/permissions",
		gin.H{"actor": "owner", "level": "Officer", "rank_id": 30})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Changed bool `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Changed)

	// Revoking again is a no-op.
	w = e.request(t, http.MethodDelete, "/api/guilds/guild-1/permissions",
		gin.H{"actor": "owner", "level": "Officer", "rank_id": 30})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Changed)
}
