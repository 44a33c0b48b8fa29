package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/docgate/docgate/handlers"
	"github.com/docgate/docgate/internal/audit"
	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/database"
	"github.com/docgate/docgate/internal/gateway"
	"github.com/docgate/docgate/internal/oidc"
	"github.com/docgate/docgate/internal/sessions"
	"github.com/docgate/docgate/internal/storage"
	"github.com/docgate/docgate/internal/tokens"
	"github.com/docgate/docgate/internal/users"
	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
	"github.com/docgate/docgate/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

func main() {
	// logging is controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v oidc=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.OIDC.Issuer != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	r.Use(gin.Logger(), gin.Recovery())

	ctx := context.Background()

	// Connect to Redis early so the token blacklist and session store can use it
	var rdb *redis.Client
	var sessionsSvc *sessions.Service
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			rdb = nil
		} else {
			sessions.SetBlacklistClient(rdb)
			sessionsSvc = sessions.NewService(sessions.NewRedisRepository(rdb, "session:"))
			logger.Infof("connected to Redis, using it for sessions and the token blacklist")
		}
	}

	// MongoDB is the document store behind the gateway; retry to tolerate
	// startup races with the database container.
	const maxAttempts = 5
	backoff := time.Second
	var store *database.Store
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		store, err = database.Connect(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Timeout)
		if err == nil {
			break
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	if err != nil {
		logger.Fatalf("could not connect to MongoDB after %d attempts: %v", maxAttempts, err)
	}
	defer func() { _ = store.Close(ctx) }()

	userSvc := users.NewService(users.NewMongoUserRepository(store.Collection("users")))
	if sessionsSvc == nil {
		sessionsSvc = sessions.NewService(sessions.NewMongoRepository(store.Collection("sessions")))
		logger.Infof("using MongoDB for session storage")
	}

	// Token verifier: an external OIDC issuer when configured, otherwise the
	// built-in HS256 tokens issued by /auth/login. ALLOW_INSECURE_TOKEN is a
	// last-resort escape hatch for integration tests.
	var verifier middleware.Verifier
	if cfg.OIDC.Issuer != "" && cfg.OIDC.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
			logger.Infof("verifying tokens against OIDC issuer %s", cfg.OIDC.Issuer)
		}
	}
	if verifier == nil && cfg.JWT.Secret != "" {
		verifier = tokens.NewJWTVerifier(cfg.JWT.Secret)
	}
	if verifier == nil {
		if strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
			logger.Warn("enabling insecure token verifier (integration mode)")
			verifier = oidc.NewInsecureVerifier()
		} else {
			logger.Fatalf("no token verifier available: set JWT_SECRET or OIDC_ISSUER/OIDC_CLIENT_ID")
		}
	}

	gw := gateway.NewMongoGateway(store.Database(), cfg.Gateway.DefaultLimit, cfg.Gateway.MaxLimit)
	recorder := audit.NewMongoRecorder(store.Collection(cfg.Audit.Collection))

	// Archive expired audit records to object storage when it is configured;
	// without it records stay in the hot collection indefinitely.
	if cfg.MinIO.Endpoint != "" {
		objStore, err := storage.New(storage.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
		})
		if err != nil {
			logger.Warnf("audit archiver disabled, object store unavailable: %v", err)
		} else {
			retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
			archiver := audit.NewArchiver(audit.NewMongoSource(store.Collection(cfg.Audit.Collection)), objStore, retention, cfg.Audit.ArchiveInterval)
			go archiver.Run(ctx)
			logger.Infof("audit archiver running: retention=%s interval=%s bucket=%s", retention, cfg.Audit.ArchiveInterval, cfg.MinIO.Bucket)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{
			"mongodb":  store.Database().Client().Ping(c.Request.Context(), nil) == nil,
			"sessions": sessionsSvc != nil,
			"redis":    rdb == nil || rdb.Ping(c.Request.Context()).Err() == nil,
		}
		for _, ok := range deps {
			if !ok {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": time.Since(startTime).String()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()})
	})

	authHandler := handlers.NewAuthHandler(cfg, userSvc, sessionsSvc)
	authHandler.Register(r.Group(""))
	handlers.RegisterSwagger(r)

	auditMW := middleware.AuditMiddleware(recorder, middleware.AuditOptions{BodyLimit: cfg.Audit.BodyLimit})
	authMW := middleware.AuthMiddleware(verifier)

	// With AUDIT_INCLUDE_REJECTED the audit middleware runs outside the auth
	// gate and records rejected requests as anonymous; by default only
	// authenticated traffic is audited.
	api := r.Group("/api/v1")
	if cfg.Audit.IncludeRejected {
		api.Use(auditMW, authMW)
	} else {
		api.Use(authMW, auditMW)
	}
	handlers.NewCollectionsHandler(gw).Register(api)
	api.GET("/me", authHandler.Me)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting docgate on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
