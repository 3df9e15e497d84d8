package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/hifravl/toolstock-backend/internal/catalog"
	"github.com/hifravl/toolstock-backend/internal/users"
	"github.com/hifravl/toolstock-backend/pkg/config"
	"github.com/hifravl/toolstock-backend/pkg/db"
	"github.com/hifravl/toolstock-backend/pkg/enums"
	"github.com/hifravl/toolstock-backend/pkg/logger"
	"github.com/hifravl/toolstock-backend/pkg/security"
)

const tempPasswordLength = 16

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	adminEmail := flag.String("admin-email", "", "email for the bootstrap admin account")
	adminName := flag.String("admin-name", "Administrator", "display name for the bootstrap admin")
	adminPassword := flag.String("admin-password", "", "password for the bootstrap admin (generated when empty)")
	catalogPath := flag.String("catalog", "", "path to a catalog CSV to import")
	dryRun := flag.Bool("dry-run", false, "report what would change without persisting")
	deleteInactive := flag.Bool("delete-inactive", false, "delete tools absent from the catalog file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if *adminEmail != "" {
		if err := seedAdmin(ctx, logg, dbClient, cfg, *adminEmail, *adminName, *adminPassword, *dryRun); err != nil {
			logg.Error(ctx, "admin seed failed", err)
			os.Exit(1)
		}
	}

	if *catalogPath != "" {
		if err := seedCatalog(ctx, logg, dbClient, *catalogPath, *dryRun, *deleteInactive); err != nil {
			logg.Error(ctx, "catalog seed failed", err)
			os.Exit(1)
		}
	}

	if *adminEmail == "" && *catalogPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -admin-email and/or -catalog")
		os.Exit(1)
	}
}

func seedAdmin(ctx context.Context, logg *logger.Logger, dbClient *db.Client, cfg *config.Config, email, name, password string, dryRun bool) error {
	email = strings.ToLower(strings.TrimSpace(email))
	repo := users.NewRepository(dbClient.DB())

	if _, err := repo.FindByEmail(ctx, email); err == nil {
		logg.Info(logg.WithField(ctx, "email", email), "admin already exists, skipping")
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	generated := false
	if password == "" {
		temp, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return fmt.Errorf("generate password: %w", err)
		}
		password = temp
		generated = true
	}

	if dryRun {
		logg.Info(logg.WithField(ctx, "email", email), "dry run: would create admin")
		return nil
	}

	hash, err := security.HashPassword(password, cfg.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	created, err := repo.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		Role:         enums.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"email": email, "user_id": created.ID.String()}), "admin created")
	if generated {
		// Printed once so the operator can capture it; it is never logged.
		fmt.Printf("admin temporary password: %s\n", password)
	}
	return nil
}

func seedCatalog(ctx context.Context, logg *logger.Logger, dbClient *db.Client, path string, dryRun, deleteInactive bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog file: %w", err)
	}
	defer file.Close()

	svc, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		return err
	}

	summary, err := svc.ImportCSV(ctx, catalog.ImportInput{
		Reader:         file,
		DryRun:         dryRun,
		DeleteInactive: deleteInactive,
	})
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"created":   summary.Created,
		"updated":   summary.Updated,
		"unchanged": summary.Unchanged,
		"deleted":   summary.Deleted,
		"errors":    len(summary.Errors),
		"dry_run":   summary.DryRun,
	})
	logg.Info(ctx, "catalog import complete")
	for _, rowErr := range summary.Errors {
		fmt.Fprintln(os.Stderr, "row error:", rowErr)
	}
	return nil
}
