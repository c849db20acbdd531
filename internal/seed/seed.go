// Package seed populates an empty database with the fixtures a fresh
// development deployment needs: the closed role set and a default admin
// account. Production environments are never seeded.
package seed

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/weathervault/weathervault/internal/authcore"
)

// Default admin credentials for development and local environments.
const (
	DefaultAdminEmail    = "admin@localhost.dev"
	DefaultAdminPassword = "admin123"
	DefaultAdminName     = "Admin"
)

// Run seeds roles and the default admin when the environment is development
// or local and the respective tables are empty. It must complete before the
// HTTP listener binds so the first sign-up never races the role rows.
func Run(ctx context.Context, environment string, roles authcore.RoleStore, users authcore.CredentialStore, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if environment != "development" && environment != "local" {
		logger.Info("skipping seed for non-development environment",
			zap.String("environment", environment))
		return nil
	}

	if seedErr := seedRoles(ctx, roles, logger); seedErr != nil {
		return seedErr
	}
	if seedErr := seedAdmin(ctx, roles, users, logger); seedErr != nil {
		return seedErr
	}
	return nil
}

func seedRoles(ctx context.Context, roles authcore.RoleStore, logger *zap.Logger) error {
	existing, countErr := roles.CountRoles(ctx)
	if countErr != nil {
		return fmt.Errorf("seed: counting roles: %w", countErr)
	}
	if existing > 0 {
		return nil
	}

	codes := authcore.AllRoleCodes()
	rows := make([]authcore.Role, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, authcore.Role{
			ID:     uuid.New(),
			Code:   code,
			Status: true,
		})
	}
	if createErr := roles.CreateRoles(ctx, rows); createErr != nil {
		return fmt.Errorf("seed: creating roles: %w", createErr)
	}
	logger.Info("seeded roles", zap.Int("count", len(rows)))
	return nil
}

func seedAdmin(ctx context.Context, roles authcore.RoleStore, users authcore.CredentialStore, logger *zap.Logger) error {
	existing, countErr := users.CountUsers(ctx)
	if countErr != nil {
		return fmt.Errorf("seed: counting users: %w", countErr)
	}
	if existing > 0 {
		return nil
	}

	if _, findErr := roles.FindRole(ctx, authcore.RoleAdmin); findErr != nil {
		return fmt.Errorf("seed: admin role lookup: %w", findErr)
	}

	passwordHash, hashErr := authcore.HashPassword(DefaultAdminPassword)
	if hashErr != nil {
		return fmt.Errorf("seed: hashing admin password: %w", hashErr)
	}

	admin := authcore.User{
		ID:           uuid.New(),
		Email:        DefaultAdminEmail,
		Name:         DefaultAdminName,
		PasswordHash: passwordHash,
		Roles:        []authcore.RoleCode{authcore.RoleAdmin},
		Status:       true,
	}
	if _, createErr := users.CreateUser(ctx, admin); createErr != nil {
		return fmt.Errorf("seed: creating admin user: %w", createErr)
	}
	logger.Info("seeded default admin", zap.String("email", DefaultAdminEmail))
	return nil
}
