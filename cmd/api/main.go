package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classroll/internal/alert"
	"classroll/internal/attendance"
	"classroll/internal/config"
	"classroll/internal/dashboard"
	"classroll/internal/handler"
	"classroll/internal/httpmiddleware"
	"classroll/internal/metrics"
	"classroll/internal/queue"
	"classroll/internal/school"
	"classroll/internal/store"
	"classroll/internal/store/memory"
	"classroll/internal/timetable"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

type repositories struct {
	school     school.Repository
	timetable  timetable.Repository
	attendance attendance.Repository
}

func runHTTP(cfg config.App) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	probes := map[string]handler.Probe{}

	var repos repositories
	switch cfg.StoreBackend {
	case "memory":
		log.Println("using in-memory store; data is lost on restart")
		mem := memory.New()
		repos = repositories{school: mem.School(), timetable: mem.Timetable(), attendance: mem.Attendance()}
	default:
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		repos = repositories{
			school:     school.NewPostgresRepository(db.Client),
			timetable:  timetable.NewPostgresRepository(db.Client),
			attendance: attendance.NewPostgresRepository(db.Client),
		}
		probes["db"] = db.Healthy
	}

	svc := school.NewService(repos.school)
	checker := timetable.NewChecker(repos.timetable, svc)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
		defer redisClient.Close()
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultRedisKey)
		probes["redis"] = redisClient.Healthy
	}
	ledger := attendance.NewLedger(repos.attendance, svc, q, loc)

	// No separate worker can reach an in-process queue, so watch it here.
	if cfg.QueueBackend == "memory" {
		w := alert.NewWatcher(ledger, alert.NewMemorySink(), cfg.DefaulterThreshold)
		go func() {
			if err := w.Run(ctx, q); err != nil && err != context.Canceled {
				log.Printf("watcher stopped: %v", err)
			}
		}()
	}

	if cfg.AdminPassword != "" {
		if _, created, err := svc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Printf("warning: ensuring admin failed: %v", err)
		} else if created {
			log.Printf("created admin %s", cfg.AdminEmail)
		}
	}

	h := handler.New(handler.Deps{
		School:    svc,
		Timetable: checker,
		Ledger:    ledger,
		Dashboard: dashboard.New(svc, checker, ledger, loc),
		Tokens: handler.TokenConfig{
			Issuer:     cfg.JWTIssuer,
			SigningKey: cfg.JWTSigningKey,
			TTL:        cfg.AccessTTL,
		},
		Threshold:  cfg.DefaulterThreshold,
		Probes:     probes,
		LoginLimit: httpmiddleware.NewSimpleTokenBucket(cfg.LoginRateLimit, cfg.LoginRateLimit).GinMiddleware(),
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(securityHeaders())
	r.Use(metrics.Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	h.Routes(r, limiter.GinMiddleware())

	// Graceful shutdown
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

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// corsConfig allows every origin for "*", otherwise the comma separated list.
func corsConfig(origins string) cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	cc.MaxAge = 24 * time.Hour
	if strings.TrimSpace(origins) == "*" || origins == "" {
		cc.AllowAllOrigins = true
		return cc
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cc.AllowOrigins = append(cc.AllowOrigins, o)
		}
	}
	cc.AllowCredentials = true
	return cc
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
