package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/yorumine/groupwarden/api/rest"
	"github.com/yorumine/groupwarden/api/sse"
	"github.com/yorumine/groupwarden/audit"
	"github.com/yorumine/groupwarden/cache"
	"github.com/yorumine/groupwarden/config"
	dbadapter "github.com/yorumine/groupwarden/db"
	"github.com/yorumine/groupwarden/events"
	"github.com/yorumine/groupwarden/identity"
	"github.com/yorumine/groupwarden/join"
	mw "github.com/yorumine/groupwarden/middleware"
	"github.com/yorumine/groupwarden/model"
	"github.com/yorumine/groupwarden/perm"
	"github.com/yorumine/groupwarden/rank"
	"github.com/yorumine/groupwarden/roblox"
	"github.com/yorumine/groupwarden/scheduler"
	"github.com/yorumine/groupwarden/xp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}
	if cfg.Roblox.Cookie == "" {
		logger.Warn("roblox.cookie is not set; group mutations will fail")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Roblox provider ----
	client := roblox.NewClient(roblox.ClientConfig{
		Cookie:    cfg.Roblox.Cookie,
		UsersURL:  cfg.Roblox.UsersURL,
		GroupsURL: cfg.Roblox.GroupsURL,
		Timeout:   cfg.Roblox.Timeout,
	})
	provider := roblox.NewCachedProvider(client, c, cfg.Roblox.UsernameTTL)

	// ---- Services ----
	linker := identity.NewLinker(db)
	resolver := perm.NewResolver(db, provider, linker, logger)
	publisher := events.NewPublisher(pubsub, logger)
	rankSvc := rank.NewService(provider, resolver, linker, auditSvc, publisher, logger)
	xpSvc := xp.NewService(db, c, provider, resolver, auditSvc, publisher, logger)
	joinSvc := join.NewService(db, provider, resolver, auditSvc, publisher, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	if cfg.Sweep.PendingJoinInterval > 0 {
		sched.AddTicker("pending_join_sweep", cfg.Sweep.PendingJoinInterval, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			var guilds []model.GuildConfig
			if err := db.WithContext(ctx).Find(&guilds).Error; err != nil {
				logger.Warn("pending join sweep: list guilds failed", zap.Error(err))
				return
			}
			for _, g := range guilds {
				reqs, err := provider.ListJoinRequests(ctx, g.MainGroupID)
				if err != nil {
					logger.Warn("pending join sweep failed",
						zap.String("guild_id", g.GuildID),
						zap.Int64("group_id", g.MainGroupID),
						zap.Error(err))
					continue
				}
				publisher.Publish(ctx, events.Event{
					Type:    events.TypePendingJoinCount,
					GuildID: g.GuildID,
					GroupID: g.MainGroupID,
					Detail:  map[string]interface{}{"count": len(reqs)},
				})
			}
		})
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	rankH := apirest.NewRankHandler(rankSvc)
	xpH := apirest.NewXPHandler(xpSvc)
	joinH := apirest.NewJoinHandler(joinSvc)
	permH := apirest.NewPermHandler(resolver)
	adminH := apirest.NewAdminHandler(db, resolver, sched)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)

		guildsG := api.Group("/guilds")
		guildsG.Use(mw.Auth(cfg.Security, c))

		guildsG.POST("/:gid/rank/promote", rankH.Promote)
		guildsG.POST("/:gid/rank/demote", rankH.Demote)
		guildsG.POST("/:gid/rank/set", rankH.SetRank)

		guildsG.POST("/:gid/xp", xpH.Adjust)
		guildsG.PUT("/:gid/xp/required", xpH.SetRequired)
		guildsG.GET("/:gid/xp/required", xpH.Required)

		guildsG.POST("/:gid/join/accept", joinH.Accept)
		guildsG.POST("/:gid/join/decline", joinH.Decline)
		guildsG.GET("/:gid/join/pending", joinH.List)
		guildsG.GET("/:gid/join/pending/:username", joinH.Check)
		guildsG.GET("/:gid/join/settings", joinH.Settings)
		guildsG.PUT("/:gid/join/settings/age", joinH.SetMinimumAge)
		guildsG.POST("/:gid/join/required-groups", joinH.AddRequiredGroup)
		guildsG.DELETE("/:gid/join/required-groups", joinH.RemoveRequiredGroup)

		guildsG.GET("/:gid/permissions", permH.Levels)
		guildsG.POST("/:gid/permissions", permH.Grant)
		guildsG.DELETE("/:gid/permissions", permH.Revoke)

		adminG := api.Group("/admin")
		adminG.Use(mw.AdminAuth(cfg.Server.AdminKey))
		adminG.POST("/guilds/:gid/setup", adminH.SetupGuild)
		adminG.POST("/guilds/:gid/permissions", adminH.SeedGrant)
		adminG.POST("/operators", adminH.CreateOperator)
		adminG.GET("/metrics", adminH.Metrics)
	}

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
