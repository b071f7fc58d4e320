package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/docflow/docflow/portal/handlers"
	"github.com/docflow/docflow/portal/internal/api"
	"github.com/docflow/docflow/portal/internal/config"
	"github.com/docflow/docflow/portal/internal/dashboard"
	"github.com/docflow/docflow/portal/internal/database"
	"github.com/docflow/docflow/portal/internal/notify"
	"github.com/docflow/docflow/portal/internal/sessions"
	"github.com/docflow/docflow/portal/internal/transport"
	"github.com/docflow/docflow/portal/pkg/logger"
	"github.com/docflow/docflow/portal/pkg/metrics"
	"github.com/docflow/docflow/portal/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

// app is the wired portal. Close releases what buildApp opened.
type app struct {
	router     *gin.Engine
	dispatcher *notify.Dispatcher
	redis      *redis.Client
	mongo      *mongo.Database
}

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Infof("config loaded: backend=%s mongo=%v redis=%v log=%s", cfg.Backend.URL, cfg.MongoDB.URI != "", cfg.Redis.Enabled(), logger.LevelString())

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("Starting portal on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	a.Close(shutdownCtx)
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	// Redis backs sessions, the busy guard, token revocation and the limiter when configured
	var store sessions.Store = sessions.NewMemoryStore()
	var guard sessions.Guard = sessions.NewMemoryGuard()
	if cfg.Redis.Enabled() {
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rc.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis %s unavailable, using in-memory sessions: %v", cfg.Redis.Addr(), err)
			_ = rc.Close()
		} else {
			a.redis = rc
			store = sessions.NewRedisStore(rc, "session:")
			guard = sessions.NewRedisGuard(rc, "busy:", 30*time.Second)
			sessions.SetRevokeClient(rc)
			logger.Infof("Using Redis for session storage: %s", cfg.Redis.Addr())
		}
	}

	var failures notify.FailureLog = notify.NewMemoryLog(cfg.Notify.KeepFailures)
	if cfg.MongoDB.URI != "" {
		db, err := connectMongo(ctx, cfg)
		if err != nil {
			logger.Warnf("could not connect to MongoDB, keeping notification failures in memory: %v", err)
		} else if ml, err := notify.NewMongoLog(ctx, db); err != nil {
			logger.Warnf("notification failure log: %v", err)
			_ = db.Client().Disconnect(context.Background())
		} else {
			a.mongo = db
			failures = ml
		}
	}

	opts := []transport.Option{transport.WithTimeout(cfg.Backend.Timeout)}
	if cfg.Backend.RPS > 0 {
		opts = append(opts, transport.WithRateLimit(cfg.Backend.RPS, cfg.Backend.Burst))
	}
	tc, err := transport.New(cfg.Backend.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}
	client := api.New(tc)
	a.dispatcher = notify.NewDispatcher(client, notify.DispatcherOptions{
		QueueSize: cfg.Notify.QueueSize,
		Workers:   cfg.Notify.Workers,
		Timeout:   cfg.Notify.Timeout,
		Failures:  failures,
	})
	client.UseNotifier(a.dispatcher)

	sessionsSvc := sessions.NewService(store, cfg.Session.TTL)
	board := dashboard.NewService(client, sessionsSvc, guard)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.RequestID(), middleware.TokenCookie(cfg.JWT.Secret))
	if cfg.RateLimit.RPS > 0 {
		r.Use(middleware.RedisRateLimitMiddleware(a.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.Window))
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	// readiness endpoint: 200 only when the configured dependencies answer
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{"redis": true, "mongodb": true}
		if cfg.Redis.Enabled() {
			deps["redis"] = a.redis != nil && a.redis.Ping(c.Request.Context()).Err() == nil
		}
		if cfg.MongoDB.URI != "" {
			deps["mongodb"] = a.mongo != nil && a.mongo.Client().Ping(c.Request.Context(), nil) == nil
		}
		status, code := "ready", http.StatusOK
		for _, ok := range deps {
			if !ok {
				status, code = "not_ready", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/notifications/failures", func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit <= 0 {
			limit = 50
		}
		recent, err := failures.Recent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"failures": recent})
	})

	handlers.NewAuthHandler(cfg, client, sessionsSvc).Register(&r.RouterGroup)
	handlers.NewDashboardHandler(cfg, board, sessionsSvc).Register(&r.RouterGroup)
	handlers.NewDocumentHandler(cfg, client, board, sessionsSvc).Register(&r.RouterGroup)
	handlers.RegisterSwagger(r)

	a.router = r
	return a, nil
}

// connectMongo retries with backoff to tolerate startup races
func connectMongo(ctx context.Context, cfg *config.Config) (*mongo.Database, error) {
	const maxAttempts = 5
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		db, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Timeout)
		if err == nil {
			return db, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}
	return nil, lastErr
}

// Close drains queued notifications before dropping connections.
func (a *app) Close(ctx context.Context) {
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(ctx); err != nil {
			logger.Warnf("notification dispatcher: %v", err)
		}
	}
	if a.mongo != nil {
		_ = a.mongo.Client().Disconnect(ctx)
	}
	if a.redis != nil {
		sessions.SetRevokeClient(nil)
		_ = a.redis.Close()
	}
}
