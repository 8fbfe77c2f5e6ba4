package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"auth-api/internal/config"
	"auth-api/internal/domain"
	apphttp "auth-api/internal/http"
	"auth-api/internal/repository"
	"auth-api/internal/repository/sqlite"
	"auth-api/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("invalid log level %q, using info", cfg.Log.Level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	tokenRepo := sqlite.NewTokenRepository(db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := tokenRepo.Init(ctx); err != nil {
		logger.Fatalf("init token repository: %v", err)
	}

	authService := service.NewAuthService(userRepo, tokenRepo, cfg.TokenTTL())

	if err := bootstrapAdmin(ctx, cfg, userRepo, logger); err != nil {
		logger.Fatalf("bootstrap admin: %v", err)
	}

	sweeper := service.NewSweeper(authService, cfg.Token.SweepInterval, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Fatalf("start token sweeper: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(authService, cfg.Server.RequireTLS)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	sweeper.Stop()

	logger.Info("bye")
}

// bootstrapAdmin seeds an enabled ADMIN account from configuration so the
// admin-gated registration endpoint is usable on a fresh database. Does
// nothing when unconfigured or when the username already exists.
func bootstrapAdmin(ctx context.Context, cfg config.Config, users repository.UserRepository, logger *logrus.Logger) error {
	username := cfg.Bootstrap.AdminUsername
	if username == "" {
		return nil
	}
	if cfg.Bootstrap.AdminPassword == "" {
		return errors.New("bootstrap admin password is required when a bootstrap admin username is set")
	}

	exists, err := users.ExistsByUsername(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Bootstrap.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if _, err := users.Create(ctx, &domain.User{
		Username:     username,
		Email:        cfg.Bootstrap.AdminEmail,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Enabled:      true,
	}); err != nil {
		return err
	}

	logger.Infof("bootstrapped admin user %s", username)
	return nil
}
