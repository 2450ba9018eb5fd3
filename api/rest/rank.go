package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorumine/groupwarden/rank"
)

// RankHandler handles rank transition endpoints. The bot relays the acting
// Discord user in the request body; options arrive already parsed.
type RankHandler struct {
	rank *rank.Service
}

// NewRankHandler creates a new RankHandler.
func NewRankHandler(svc *rank.Service) *RankHandler {
	return &RankHandler{rank: svc}
}

type rankStepRequest struct {
	Actor    string `json:"actor"    binding:"required"`
	Username string `json:"username" binding:"required"`
}

// Promote handles POST /api/guilds/:gid/rank/promote.
func (h *RankHandler) Promote(c *gin.Context) {
	var req rankStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.rank.Promote(c.Request.Context(), req.Actor, c.Param("gid"), req.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Demote handles POST /api/guilds/:gid/rank/demote.
func (h *RankHandler) Demote(c *gin.Context) {
	var req rankStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.rank.Demote(c.Request.Context(), req.Actor, c.Param("gid"), req.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type setRankRequest struct {
	Actor    string `json:"actor"    binding:"required"`
	Username string `json:"username" binding:"required"`
	RankID   *int   `json:"rank_id"`
}

// SetRank handles POST /api/guilds/:gid/rank/set.
func (h *RankHandler) SetRank(c *gin.Context) {
	var req setRankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.rank.SetRank(c.Request.Context(), req.Actor, c.Param("gid"), req.Username, req.RankID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
