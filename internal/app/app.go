package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-directory-admin/internal/config"
	"go-directory-admin/internal/database"
	"go-directory-admin/internal/handler"
	"go-directory-admin/internal/middleware"
	"go-directory-admin/internal/repository"
	"go-directory-admin/internal/router"
	"go-directory-admin/internal/service"
	"go-directory-admin/internal/token"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	slog.Info("database ready")

	if err := seedAdmin(context.Background(), cfg, userRepo, groupRepo); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed admin account: %w", err)
	}

	// A broken signing key is a startup invariant violation, not a
	// per-request error.
	codec, err := token.NewCodec(cfg.JWTSecret, cfg.JWTAccessTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	registry := token.NewRevocationRegistry()

	backend := service.NewSQLBackend(userRepo, groupRepo, tokenRepo, cfg.RefreshTTL)
	auditService := service.NewAuditService(auditRepo)
	authService := service.NewAuthService(backend, codec, registry)
	authMiddleware := middleware.NewAuthMiddleware(codec, registry, cfg.AdminGroup)

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:  handler.NewAuthHandler(authService, auditService),
		User:  handler.NewUserHandler(userRepo),
		Group: handler.NewGroupHandler(groupRepo),
		Audit: handler.NewAuditHandler(auditService),
	})

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go registry.StartPruneTicker(cleanupCtx, cfg.PruneInterval)
	go startTokenCleanup(cleanupCtx, tokenRepo, cfg.PruneInterval)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			cleanupCancel,
			db.Close,
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// startTokenCleanup drops expired refresh-token and jwt_storage rows on an
// interval until ctx is cancelled.
func startTokenCleanup(ctx context.Context, tokenRepo *repository.TokenRepository, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := tokenRepo.CleanExpired(ctx)
			if err != nil {
				slog.Error("token cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("cleaned expired token rows", "removed", removed)
			}
		}
	}
}
