package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorumine/groupwarden/join"
)

// JoinHandler handles join-request admission endpoints.
type JoinHandler struct {
	join *join.Service
}

// NewJoinHandler creates a new JoinHandler.
func NewJoinHandler(svc *join.Service) *JoinHandler {
	return &JoinHandler{join: svc}
}

type joinResolveRequest struct {
	Actor    string `json:"actor"    binding:"required"`
	Username string `json:"username" binding:"required"`
}

// Accept handles POST /api/guilds/:gid/join/accept.
func (h *JoinHandler) Accept(c *gin.Context) {
	var req joinResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.join.Accept(c.Request.Context(), req.Actor, c.Param("gid"), req.Username); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "accepted", "username": req.Username})
}

// Decline handles POST /api/guilds/:gid/join/decline.
func (h *JoinHandler) Decline(c *gin.Context) {
	var req joinResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.join.Decline(c.Request.Context(), req.Actor, c.Param("gid"), req.Username); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "declined", "username": req.Username})
}

// List handles GET /api/guilds/:gid/join/pending?actor=.
func (h *JoinHandler) List(c *gin.Context) {
	actor := c.Query("actor")
	if actor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor is required"})
		return
	}
	names, err := h.join.List(c.Request.Context(), actor, c.Param("gid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": names})
}

// Check handles GET /api/guilds/:gid/join/pending/:username?actor=.
func (h *JoinHandler) Check(c *gin.Context) {
	actor := c.Query("actor")
	if actor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor is required"})
		return
	}
	detail, err := h.join.Check(c.Request.Context(), actor, c.Param("gid"), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Settings handles GET /api/guilds/:gid/join/settings?actor=.
func (h *JoinHandler) Settings(c *gin.Context) {
	actor := c.Query("actor")
	if actor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor is required"})
		return
	}
	view, err := h.join.Settings(c.Request.Context(), actor, c.Param("gid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type setMinimumAgeRequest struct {
	Actor string `json:"actor" binding:"required"`
	Days  int    `json:"days"  binding:"gte=0"`
}

// SetMinimumAge handles PUT /api/guilds/:gid/join/settings/age.
func (h *JoinHandler) SetMinimumAge(c *gin.Context) {
	var req setMinimumAgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.join.SetMinimumAge(c.Request.Context(), req.Actor, c.Param("gid"), req.Days); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"minimum_age_days": req.Days})
}

type requiredGroupRequest struct {
	Actor   string `json:"actor"    binding:"required"`
	GroupID int64  `json:"group_id" binding:"required"`
}

// AddRequiredGroup handles POST /api/guilds/:gid/join/required-groups.
func (h *JoinHandler) AddRequiredGroup(c *gin.Context) {
	var req requiredGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.join.AddRequiredGroup(c.Request.Context(), req.Actor, c.Param("gid"), req.GroupID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_id": req.GroupID})
}

// RemoveRequiredGroup handles DELETE /api/guilds/:gid/join/required-groups.
func (h *JoinHandler) RemoveRequiredGroup(c *gin.Context) {
	var req requiredGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.join.RemoveRequiredGroup(c.Request.Context(), req.Actor, c.Param("gid"), req.GroupID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_id": req.GroupID})
}
