package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorumine/groupwarden/perm"
)

// PermHandler handles permission configuration endpoints.
type PermHandler struct {
	perm *perm.Resolver
}

// NewPermHandler creates a new PermHandler.
func NewPermHandler(resolver *perm.Resolver) *PermHandler {
	return &PermHandler{perm: resolver}
}

// Levels handles GET /api/guilds/:gid/permissions.
func (h *PermHandler) Levels(c *gin.Context) {
	levels, err := h.perm.Levels(c.Request.Context(), c.Param("gid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"levels": levels})
}

type grantRequest struct {
	Actor  string `json:"actor"   binding:"required"`
	Level  string `json:"level"   binding:"required,oneof=Owner HICOM Officer NCO"`
	RankID int    `json:"rank_id" binding:"required"`
}

// Grant handles POST /api/guilds/:gid/permissions.
func (h *PermHandler) Grant(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	level, err := perm.ParseLevel(req.Level)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed, err := h.perm.Grant(c.Request.Context(), req.Actor, c.Param("gid"), level, req.RankID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"level": req.Level, "rank_id": req.RankID, "changed": changed})
}

// Revoke handles DELETE /api/guilds/:gid/permissions.
func (h *PermHandler) Revoke(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	level, err := perm.ParseLevel(req.Level)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed, err := h.perm.Revoke(c.Request.Context(), req.Actor, c.Param("gid"), level, req.RankID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"level": req.Level, "rank_id": req.RankID, "changed": changed})
}
