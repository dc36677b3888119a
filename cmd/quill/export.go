package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/quillhealth/quill/internal/config"
	"github.com/quillhealth/quill/internal/crypto"
	"github.com/quillhealth/quill/internal/migrate"
	"github.com/quillhealth/quill/internal/models"
	"github.com/quillhealth/quill/internal/repository"
	"github.com/quillhealth/quill/internal/store"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a decrypted snapshot of the journal",
	Long: `Write a decrypted JSON snapshot of the journal to a file or
stdout. This is the only way journal data leaves the encrypted store
and it only runs on explicit request.`,
	RunE: runExport,
}

var (
	exportOutput        string
	exportFrom          string
	exportTo            string
	exportNotes         bool
	exportTags          bool
	exportInterventions bool
	exportContext       bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start of date range (RFC3339)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End of date range (RFC3339)")
	exportCmd.Flags().BoolVar(&exportNotes, "notes", true, "Include free-text notes")
	exportCmd.Flags().BoolVar(&exportTags, "tags", true, "Include tags")
	exportCmd.Flags().BoolVar(&exportInterventions, "interventions", true, "Include interventions")
	exportCmd.Flags().BoolVar(&exportContext, "context", true, "Include sleep/stress context")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var from, to *time.Time
	if exportFrom != "" {
		parsed, err := time.Parse(time.RFC3339, exportFrom)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		from = &parsed
	}
	if exportTo != "" {
		parsed, err := time.Parse(time.RFC3339, exportTo)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		to = &parsed
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

	sel := models.ExportFieldSelection{
		IncludeNotes:         exportNotes,
		IncludeTags:          exportTags,
		IncludeInterventions: exportInterventions,
		IncludeContext:       exportContext,
	}

	entries, err := repo.ExportSnapshot(cmd.Context(), from, to, sel)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	out := os.Stdout
	if exportOutput != "" {
		f, err := os.OpenFile(exportOutput, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{
		"entries":     entries,
		"count":       len(entries),
		"exported_at": time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	if exportOutput != "" {
		fmt.Printf("Exported %d entries to %s\n", len(entries), exportOutput)
	}
	return nil
}
