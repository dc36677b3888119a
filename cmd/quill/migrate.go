package main

import (
	"fmt"
	"os"

	"github.com/quillhealth/quill/internal/config"
	"github.com/quillhealth/quill/internal/crypto"
	"github.com/quillhealth/quill/internal/logger"
	"github.com/quillhealth/quill/internal/migrate"
	"github.com/quillhealth/quill/internal/repository"
	"github.com/quillhealth/quill/internal/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Eagerly upgrade all records to the current schema",
	Long: `Upgrade every stored record to the current schema version. A
pre-migration snapshot is written first so the step is reversible.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewSlogLogger(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	logger.SetDefault(log)

	if err := os.MkdirAll(cfg.Store.Dir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	key, err := crypto.LoadOrCreateKey(cfg.Store.Dir, cfg.Crypto.Passphrase)
	if err != nil {
		return fmt.Errorf("failed to load encryption key: %w", err)
	}
	gateway, err := crypto.NewGateway(key)
	if err != nil {
		return fmt.Errorf("failed to initialize encryption: %w", err)
	}

	st, err := store.Open(cfg.Store.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	repo := repository.NewEntryRepository(st, gateway, migrate.New(), cfg.Analytics.SeverityScaleMax)

	migrated, snapshotPath, err := repo.MigrateAll(cmd.Context(), cfg.Store.Dir)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Printf("Migrated %d records to schema version %d\n", migrated, migrate.CurrentVersion)
	fmt.Printf("Pre-migration snapshot: %s\n", snapshotPath)
	return nil
}
