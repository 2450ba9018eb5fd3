package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorumine/groupwarden/model"
	"github.com/yorumine/groupwarden/perm"
	"github.com/yorumine/groupwarden/scheduler"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminHandler serves the admin-key surface: guild bootstrap, operator
// provisioning and runtime metrics. Routes are mounted behind AdminAuth.
type AdminHandler struct {
	db    *gorm.DB
	perm  *perm.Resolver
	sched *scheduler.Scheduler
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *gorm.DB, resolver *perm.Resolver, sched *scheduler.Scheduler) *AdminHandler {
	return &AdminHandler{db: db, perm: resolver, sched: sched}
}

type setupGuildRequest struct {
	MainGroupID int64 `json:"main_group_id" binding:"required"`
}

// SetupGuild handles POST /api/admin/guilds/:gid/setup. Binds a guild to
// its main Roblox group, replacing any previous binding.
func (h *AdminHandler) SetupGuild(c *gin.Context) {
	var req setupGuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.perm.Setup(c.Request.Context(), c.Param("gid"), req.MainGroupID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild_id": c.Param("gid"), "main_group_id": req.MainGroupID})
}

type seedGrantRequest struct {
	Level  string `json:"level"   binding:"required,oneof=Owner HICOM Officer NCO"`
	RankID int    `json:"rank_id" binding:"required"`
}

// SeedGrant handles POST /api/admin/guilds/:gid/permissions. Inserts a
// permission grant without an Owner check so a fresh guild can bootstrap
// its first Owner rank set.
func (h *AdminHandler) SeedGrant(c *gin.Context) {
	var req seedGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	level, err := perm.ParseLevel(req.Level)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed, err := h.perm.SeedGrant(c.Request.Context(), c.Param("gid"), level, req.RankID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"level": req.Level, "rank_id": req.RankID, "changed": changed})
}

type createOperatorRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
	Password string `json:"password" binding:"required,min=8,max=64"`
}

// CreateOperator handles POST /api/admin/operators.
func (h *AdminHandler) CreateOperator(c *gin.Context) {
	var req createOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var count int64
	h.db.Model(&model.Operator{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash error"})
		return
	}
	op := model.Operator{Username: req.Username, PasswordHash: string(hash), Status: 1}
	if err := h.db.Create(&op).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"operator_id": op.ID, "username": op.Username})
}

// Metrics handles GET /api/admin/metrics.
func (h *AdminHandler) Metrics(c *gin.Context) {
	counts := gin.H{}
	for name, m := range map[string]interface{}{
		"guilds":          &model.GuildConfig{},
		"linked_accounts": &model.LinkedAccount{},
		"memberships":     &model.GroupMembership{},
		"xp_records":      &model.XPRecord{},
		"audit_logs":      &model.AuditLog{},
	} {
		var n int64
		h.db.Model(m).Count(&n)
		counts[name] = n
	}
	c.JSON(http.StatusOK, gin.H{
		"counts":  counts,
		"tickers": h.sched.ListTickers(),
	})
}
