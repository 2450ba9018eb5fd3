package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorumine/groupwarden/xp"
)

// XPHandler handles XP ledger endpoints.
type XPHandler struct {
	xp *xp.Service
}

// NewXPHandler creates a new XPHandler.
func NewXPHandler(svc *xp.Service) *XPHandler {
	return &XPHandler{xp: svc}
}

type adjustXPRequest struct {
	Actor    string `json:"actor"    binding:"required"`
	Username string `json:"username" binding:"required"`
	Action   string `json:"action"   binding:"required,oneof=add remove set"`
	Amount   int64  `json:"amount"   binding:"gte=0"`
}

// Adjust handles POST /api/guilds/:gid/xp.
func (h *XPHandler) Adjust(c *gin.Context) {
	var req adjustXPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	newXP, promoted, err := h.xp.Adjust(c.Request.Context(), req.Actor, c.Param("gid"),
		req.Username, xp.Action(req.Action), req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{"username": req.Username, "xp": newXP}
	if promoted != nil {
		resp["promoted_to"] = promoted
	}
	c.JSON(http.StatusOK, resp)
}

type setRequiredXPRequest struct {
	Actor  string `json:"actor"   binding:"required"`
	RankID int    `json:"rank_id" binding:"required"`
	XP     int64  `json:"xp"      binding:"gte=0"`
}

// SetRequired handles PUT /api/guilds/:gid/xp/required.
func (h *XPHandler) SetRequired(c *gin.Context) {
	var req setRequiredXPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.xp.SetRequired(c.Request.Context(), req.Actor, c.Param("gid"), req.RankID, req.XP); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rank_id": req.RankID, "xp": req.XP})
}

// Required handles GET /api/guilds/:gid/xp/required.
func (h *XPHandler) Required(c *gin.Context) {
	table, err := h.xp.Required(c.Request.Context(), c.Param("gid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"required_xp": table})
}
