package main

import (
	"log"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"credvault/internal/audit"
	"credvault/internal/auth"
	"credvault/internal/config"
	"credvault/internal/crypto"
	"credvault/internal/db"
	"credvault/internal/http/handlers"
	appmw "credvault/internal/http/middleware"
	"credvault/internal/ratelimit"
	"credvault/internal/token"
	"credvault/internal/vault"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := db.EnsureBootstrapAdmin(sqlDB, cfg); err != nil {
		log.Fatalf("failed to ensure bootstrap admin: %v", err)
	}

	engine, err := crypto.New(cfg.MasterSecret)
	if err != nil {
		log.Fatalf("failed to initialise crypto engine: %v", err)
	}

	tokens, err := token.NewService(cfg.TokenSecret)
	if err != nil {
		log.Fatalf("failed to initialise token service: %v", err)
	}

	limiter := ratelimit.New(cfg.RateLimit, cfg.RateWindow)
	limiter.StartSweeper(ratelimit.SweepInterval)
	defer limiter.Stop()

	auditLog := audit.NewLogger(db.NewAuditStore(sqlDB))
	vaultSvc := vault.New(db.NewCredentialStore(sqlDB), engine, auditLog)

	if cfg.DevBypass {
		log.Printf("WARNING: admin authentication bypass is enabled (development only)")
	}
	authn := auth.NewAuthenticator(limiter, tokens, auditLog, cfg.DevBypass)

	handlers.InitMetrics()

	r := router.New()

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.POST("/v1/auth/login", handlers.Login(sqlDB, tokens))

	admin := appmw.AdminAuth(authn)

	r.GET("/v1/credentials", admin(handlers.ListCredentials(vaultSvc)))
	r.POST("/v1/credentials", admin(handlers.UpsertCredential(vaultSvc)))
	r.GET("/v1/credentials/{service}", admin(handlers.GetCredential(vaultSvc)))
	r.PUT("/v1/credentials/{service}", admin(handlers.UpsertCredential(vaultSvc)))
	r.DELETE("/v1/credentials/{service}", admin(handlers.DeleteCredential(vaultSvc)))
	r.POST("/v1/credentials/{service}/test", admin(handlers.TestCredential(vaultSvc)))

	r.GET("/v1/audit", admin(handlers.AuditLogs(auditLog)))
	r.GET("/metrics", admin(handlers.MetricsHandler()))

	handler := handlers.RequestLogger(r.Handler)

	log.Printf("credvault listening on %s", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
