// Command seed loads the demo catalog and accounts into the database.
package main

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/repository"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	reset := pflag.Bool("reset", false, "roll back every migration before seeding (drops all data)")
	migrationsDir := pflag.String("migrations", "migrations", "directory holding the goose migrations")
	pflag.Parse()

	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer dbService.Close()
	db := dbService.DB()

	if *reset {
		log.Warn("Resetting database", zap.String("database", cfg.Database.Database))
		if err := database.ResetMigrations(db, *migrationsDir); err != nil {
			log.Fatal("Failed to reset migrations", zap.Error(err))
		}
	}

	if err := database.RunMigrations(db, *migrationsDir, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s := &seeder{
		products: repository.NewProductRepository(db),
		users:    repository.NewUserRepository(db),
		logger:   log,
	}

	accounts, err := s.seedAccounts(ctx)
	if err != nil {
		log.Fatal("Failed to seed accounts", zap.Error(err))
	}

	products, err := s.seedCatalog(ctx)
	if err != nil {
		log.Fatal("Failed to seed catalog", zap.Error(err))
	}

	log.Info("Seeding completed",
		zap.Int("accounts_created", accounts),
		zap.Int("products_created", products),
	)
}
