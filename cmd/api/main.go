package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusattend/internal/attendance"
	"campusattend/internal/auth"
	"campusattend/internal/config"
	"campusattend/internal/handler"
	"campusattend/internal/httpmiddleware"
	"campusattend/internal/profile"
	"campusattend/internal/queue"
	"campusattend/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boundary, err := cfg.Boundary()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	admins, err := auth.LoadRegistry(cfg.AdminsFile)
	if err != nil {
		return err
	}
	log.Printf("campus center %.5f,%.5f radius %.0fm tz %s, %d teacher account(s)",
		boundary.Center.Lat, boundary.Center.Lon, boundary.RadiusMeters, loc, admins.Len())

	var (
		db       *store.DB
		ledger   attendance.Ledger
		profiles profile.Store
	)
	if cfg.LedgerBackend == "memory" {
		log.Println("using in-memory ledger and profiles; data is lost on restart")
		ledger = attendance.NewMemoryLedger()
		profiles = profile.NewMemoryStore()
	} else {
		db, err = store.NewDB(ctx, cfg.DatabaseURL)
		if db == nil {
			return err
		}
		if err != nil {
			log.Printf("warning: db not reachable, migrating once it is: %v", err)
			go func() {
				if err := store.MigrateWhenReady(ctx, db.Client, 2*time.Second); err != nil && ctx.Err() == nil {
					log.Printf("schema migration failed: %v", err)
				}
			}()
		} else if err := store.Migrate(ctx, db.Client); err != nil {
			return err
		}
		ledger = attendance.NewRepository(db.Client)
		profiles = profile.NewRepository(db.Client)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	tally := attendance.NewTally(redisClient.Client)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		// no worker shares this queue, so tally in-process
		mem := queue.NewInMemory(64)
		msgs, err := mem.Consume(ctx)
		if err != nil {
			return err
		}
		go tally.Run(ctx, msgs)
		q = mem
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:checkins")
	}

	var guard attendance.Guard
	if cfg.LockBackend == "redis" {
		guard = attendance.NewRedisGuard(redisClient.Client, 10*time.Second)
	} else {
		guard = attendance.NewLocalGuard()
	}

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	} else {
		limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}

	att := attendance.NewService(ledger, profiles, guard, q, attendance.Policy{
		Boundary: boundary,
		Location: loc,
	})
	h := handler.New(att, profiles, admins, tally, handler.Tokens{
		Issuer:     cfg.JWTIssuer,
		SigningKey: cfg.JWTSigningKey,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}, cfg.StoreTimeout)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:          24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.RateLimit(limiter))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	dbCheck := db.Healthy
	if cfg.LedgerBackend == "memory" {
		dbCheck = func(context.Context) bool { return true }
	}
	r.GET("/healthz", healthz(redisClient.Healthy, dbCheck))

	h.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// healthz reports 200 "ok" only when every dependency answers, 503 "degraded" otherwise.
func healthz(redisHealthy, dbHealthy func(context.Context) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		redisOK, dbOK := redisHealthy(ctx), dbHealthy(ctx)
		code, status := http.StatusOK, "ok"
		if !redisOK || !dbOK {
			code, status = http.StatusServiceUnavailable, "degraded"
		}
		c.JSON(code, gin.H{"status": status, "redis": redisOK, "db": dbOK})
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
