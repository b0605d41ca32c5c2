package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jstrand/taskgate/internal/auth"
	"github.com/jstrand/taskgate/internal/config"
	"github.com/jstrand/taskgate/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Ensure an admin account exists",
	Long:  "Creates the bootstrap admin account from SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD. If a user with that email already exists it is promoted to admin instead. Safe to run repeatedly.",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return fmt.Errorf("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set")
	}
	if len(password) < 6 {
		return fmt.Errorf("SEED_ADMIN_PASSWORD must be at least 6 characters")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := user.NewStore(pool)

	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role == auth.RoleAdmin {
			slog.Info("admin account already exists", "email", existing.Email)
			return nil
		}
		promoted, err := users.UpdateRole(ctx, existing.ID, auth.RoleAdmin)
		if err != nil {
			return fmt.Errorf("promoting existing user: %w", err)
		}
		slog.Info("promoted existing user to admin", "email", promoted.Email, "id", promoted.ID)
		return nil
	}

	created, err := users.Create(ctx, user.CreateUserInput{
		Name:     "Administrator",
		Email:    email,
		Password: password,
		Role:     auth.RoleAdmin,
	})
	if err != nil {
		// A concurrent seed run can win the insert; treat that as done.
		if errors.Is(err, user.ErrDuplicateEmail) {
			slog.Info("admin account already exists", "email", email)
			return nil
		}
		return fmt.Errorf("creating admin account: %w", err)
	}

	slog.Info("created admin account", "email", created.Email, "id", created.ID)
	return nil
}
