package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"go-directory-admin/internal/config"
	"go-directory-admin/internal/model"
	"go-directory-admin/internal/repository"
)

// seedAdmin makes a fresh instance reachable: the admin group always exists,
// and on an empty user table the configured admin account is created with
// membership in that group.
func seedAdmin(ctx context.Context, cfg *config.Config, users *repository.UserRepository, groups *repository.GroupRepository) error {
	adminGroup, err := groups.FindByName(ctx, cfg.AdminGroup)
	if errors.Is(err, model.ErrGroupNotFound) {
		adminGroup, err = groups.Create(ctx, cfg.AdminGroup)
	}
	if err != nil {
		return err
	}

	count, err := users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if cfg.AdminPassword == "" {
		slog.Warn("no users exist and ADMIN_PASSWORD is not set; skipping admin seeding")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), 12)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := model.User{
		UserID:       cfg.AdminUser,
		Email:        cfg.AdminUser + "@localhost",
		CreationDate: time.Now().UTC(),
		PasswordHash: string(hash),
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}

	if err := groups.AddMembership(ctx, admin.UserID, adminGroup.GroupID); err != nil {
		return err
	}

	slog.Info("seeded admin account", "user", admin.UserID, "group", adminGroup.DisplayName)
	return nil
}
