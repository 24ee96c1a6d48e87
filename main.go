package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/salesworks/sales-engine/pkg/config"
	"github.com/salesworks/sales-engine/pkg/database"
	"github.com/salesworks/sales-engine/pkg/handlers"
	"github.com/salesworks/sales-engine/pkg/repositories"
	"github.com/salesworks/sales-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.String("db_host", cfg.Database.Host),
		zap.Int("import_workers", cfg.Import.Workers))

	ctx := context.Background()

	// Migrations run over database/sql; the application itself uses pgx.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	entityStore := repositories.NewEntityStore(db)
	customerRepo := repositories.NewCustomerRepository(db)
	productRepo := repositories.NewProductRepository(db)
	agentRepo := repositories.NewAgentRepository(db)
	saleRepo := repositories.NewSaleRepository(db)
	salaryRepo := repositories.NewSalaryRepository(db)
	runRepo := repositories.NewImportRunRepository(db)

	// Services
	importSvc := services.NewImportService(entityStore, saleRepo, runRepo, cfg.Import.Workers, logger)
	analyticsSvc := services.NewAnalyticsService(saleRepo, customerRepo, productRepo, logger)
	salarySvc := services.NewSalaryService(agentRepo, saleRepo, salaryRepo, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg).RegisterRoutes(mux)
	handlers.NewImportHandler(importSvc, cfg.Import.MaxUploadBytes, logger).RegisterRoutes(mux)
	handlers.NewAnalyticsHandler(analyticsSvc, cfg.Analytics.DefaultTopN, logger).RegisterRoutes(mux)
	handlers.NewSalaryHandler(salarySvc, logger).RegisterRoutes(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting sales-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
