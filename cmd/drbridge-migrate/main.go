package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/drbridge/pkg/log"
	"github.com/cuemby/drbridge/pkg/storage"
)

var (
	dataDir     = flag.String("data-dir", "./data", "Bolt data directory to read from")
	databaseURL = flag.String("database-url", "", "Postgres connection string to write to (required)")
	dryRun      = flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	backupPath  = flag.String("backup", "", "Path to backup the database before migration (default: <data-dir>/drbridge.db.backup)")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	level := log.InfoLevel
	if *debug {
		level = log.DebugLevel
	}
	log.Init(log.Config{Level: level})
	logger := log.WithComponent("migrate")

	dbPath := filepath.Join(*dataDir, "drbridge.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		logger.Fatal().Str("path", dbPath).Msg("Database not found")
	}
	if *databaseURL == "" && !*dryRun {
		logger.Fatal().Msg("--database-url is required")
	}

	logger.Info().Str("database", dbPath).Bool("dry_run", *dryRun).Msg("Migrating data requests from bolt to postgres")

	if !*dryRun {
		backupFile := *backupPath
		if backupFile == "" {
			backupFile = dbPath + ".backup"
		}
		if err := copyFile(dbPath, backupFile); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create backup")
		}
		logger.Info().Str("backup", backupFile).Msg("Backup created")
	}

	src, err := storage.NewBoltStore(*dataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open bolt store")
	}
	defer src.Close()

	var dst storage.Store
	if !*dryRun {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		pg, err := storage.NewPostgresStore(ctx, *databaseURL)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to open postgres store")
		}
		defer pg.Close()
		dst = pg
	}

	res, err := migrate(src, dst, *dryRun)
	if err != nil {
		logger.Fatal().Err(err).Int("migrated", res.Migrated).Msg("Migration failed")
	}

	if *dryRun {
		logger.Info().Int("requests", res.Found).Msg("Dry run completed, no changes made")
		return
	}
	logger.Info().
		Int("migrated", res.Migrated).
		Uint64("last_known_id", res.LastKnownID).
		Msg("Migration completed, set storage.driver to postgres")
}

func copyFile(src, dst string) error {
	input, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, input, 0600)
}
