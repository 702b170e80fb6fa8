// Command ensure-admin creates or promotes the staff account named by
// ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD.
package main

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/session"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		log.Info("ADMIN_USERNAME or ADMIN_PASSWORD not set, skipping admin bootstrap")
		return
	}

	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer dbService.Close()

	// Only the user store is touched; sessions and mail are never used here
	users := service.NewUserService(
		repository.NewUserRepository(dbService.DB()),
		nil,
		session.NewResetTokens(cfg.Session.Secret, cfg.Session.ResetExpiry),
		nil,
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := users.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		log.Fatal("Failed to ensure admin account", zap.Error(err))
	}

	if created {
		log.Info("Admin account created", zap.String("username", cfg.Admin.Username))
	} else {
		log.Info("Admin account updated", zap.String("username", cfg.Admin.Username))
	}
}
