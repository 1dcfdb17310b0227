package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crmdesk/config"
	"crmdesk/internal/database"
	"crmdesk/internal/handler"
	"crmdesk/internal/middleware"
	"crmdesk/internal/repository"
	"crmdesk/internal/router"
	"crmdesk/internal/session"
	"crmdesk/internal/viewstate"
	"crmdesk/internal/ws"
	"crmdesk/pkg/cloudinary"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func newLogger(env string) *zap.Logger {
	var log *zap.Logger
	var err error
	if env == "production" {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := newLogger(cfg.Server.Env)
	defer log.Sync()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("database handle", zap.Error(err))
	}
	checks := map[string]handler.Check{"database": sqlDB.PingContext}

	var views viewstate.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unreachable, keeping view state in memory", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			views = viewstate.NewRedisStore(rdb, cfg.Redis.ViewTTL)
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
			defer rdb.Close()
			log.Info("view state in redis", zap.String("addr", cfg.Redis.Addr))
		}
	}
	if views == nil {
		mem := viewstate.NewMemoryStore(cfg.Redis.ViewTTL)
		defer mem.Close()
		views = mem
	}

	var cloud cloudinary.Uploader
	if cfg.Cloudinary.Enabled() {
		cloud, err = cloudinary.New(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
		if err != nil {
			log.Fatal("cloudinary", zap.Error(err))
		}
		log.Info("profile pictures go to cloudinary", zap.String("folder", cfg.Cloudinary.Folder))
	} else {
		log.Info("cloudinary not configured, profile pictures are forwarded to the backend")
	}

	if err := middleware.RegisterValidators(); err != nil {
		log.Fatal("validators", zap.Error(err))
	}

	sessions := session.NewManager(&cfg.Session, repository.NewSessionRepository(db), log)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go sessions.RunSweeper(ctx)

	engine := router.Setup(cfg, router.Deps{
		DB:       db,
		Views:    views,
		Sessions: sessions,
		Hub:      ws.NewHub(),
		Cloud:    cloud,
		Checks:   checks,
		Log:      log,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("backend", cfg.Backend.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
