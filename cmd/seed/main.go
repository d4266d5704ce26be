package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"

	"inkwell/internal/config"
	"inkwell/internal/repository/postgres"
	postgresVersioning "inkwell/internal/repository/postgres/versioning"
	"inkwell/internal/seed"
	versioningSvc "inkwell/internal/service/versioning"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before setup (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't run the demo scenario")
	demo := flag.Bool("demo", false, "Run the end-to-end branch/inherit/rebase/resolve scenario")
	flag.Parse()

	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: cannot run --drop-tables in production environment")
	}

	// Setup structured logging to stdout and a rotated file
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logFile, err := config.SetupLogFile(cfg.LogDir, config.MaxLogFiles)
	if err != nil {
		log.Fatalf("Failed to set up log file: %v", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stdout, logFile), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("seed starting",
		"environment", cfg.Environment,
		"table_prefix", cfg.TablePrefix,
		"drop_tables", *dropTables,
		"schema_only", *schemaOnly,
	)

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names and schema
	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		if err := postgres.DropSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop schema: %v", err)
		}
		logger.Info("schema dropped")
	}

	if err := postgres.CreateSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	logger.Info("schema ready")

	if *schemaOnly || !*demo {
		return
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	branchRepo := postgresVersioning.NewBranchRepository(repoConfig)
	itemRepo := postgresVersioning.NewContentItemRepository(repoConfig)
	versionRepo := postgresVersioning.NewContentVersionRepository(repoConfig)
	snapshotRepo := postgresVersioning.NewSnapshotRepository(repoConfig)
	historyRepo := postgresVersioning.NewMergeHistoryRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Create engine services
	sessions := versioningSvc.NewRebaseSessionStore()
	merger := versioningSvc.NewMergeService()
	inheritSvc := versioningSvc.NewInheritanceService(branchRepo, itemRepo, versionRepo, snapshotRepo, historyRepo, txManager, logger)
	rebaseSvc := versioningSvc.NewRebaseService(branchRepo, itemRepo, versionRepo, snapshotRepo, historyRepo, txManager, merger, sessions, logger)
	resolveSvc := versioningSvc.NewConflictResolutionService(itemRepo, versionRepo, historyRepo, txManager, sessions, logger)
	gate := versioningSvc.NewPublishGate(itemRepo, logger)

	seeder := seed.NewDemoSeeder(branchRepo, itemRepo, versionRepo, inheritSvc, rebaseSvc, resolveSvc, gate, logger)
	if err := seeder.Run(ctx); err != nil {
		log.Fatalf("Demo scenario failed: %v", err)
	}

	logger.Info("demo scenario complete")
}
