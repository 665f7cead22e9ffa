package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/evigdal/assayer/internal/assess"
	"github.com/evigdal/assayer/internal/audit"
	"github.com/evigdal/assayer/internal/config"
	"github.com/evigdal/assayer/internal/draft"
	"github.com/evigdal/assayer/internal/guard"
	"github.com/evigdal/assayer/internal/prompt"
	"github.com/evigdal/assayer/internal/provider"
	"github.com/evigdal/assayer/internal/rules"
	"github.com/evigdal/assayer/internal/store"
)

var (
	assessTenant  string
	assessVersion string
	assessUser    string
)

func init() {
	assessCmd.Flags().StringVar(&assessTenant, "tenant", "", "tenant ID (required)")
	assessCmd.Flags().StringVar(&assessVersion, "version", "", "system version ID (required)")
	assessCmd.Flags().StringVar(&assessUser, "user", "cli", "user ID recorded on the assessment")
	_ = assessCmd.MarkFlagRequired("tenant")
	_ = assessCmd.MarkFlagRequired("version")
	rootCmd.AddCommand(assessCmd)
}

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run one compliance assessment for a tenant's system version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		runner, cleanup, err := buildRunner(cfg, db)
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := runner.Run(cmd.Context(), assessTenant, assessVersion, assessUser)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				return fmt.Errorf("version not found for tenant: %w", err)
			case errors.Is(err, draft.ErrGuardrail):
				return fmt.Errorf("assessment blocked: %w", err)
			default:
				return err
			}
		}

		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

// buildRunner wires the pipeline from configuration. The returned cleanup
// closes the audit log if one was opened.
func buildRunner(cfg *config.Config, db *store.SQLite) (*assess.Runner, func(), error) {
	gen := draft.New(
		provider.New(provider.Options{
			Mode:      cfg.Provider.Mode,
			BaseURL:   cfg.Provider.BaseURL,
			APIKey:    cfg.Provider.APIKey,
			Model:     cfg.Provider.Model,
			MaxTokens: cfg.Provider.MaxTokens,
			Timeout:   time.Duration(cfg.Provider.TimeoutSec) * time.Second,
		}),
		prompt.NewRepository(cfg.PromptRoot),
		draft.Config{
			LocalMode:  provider.IsLocal(cfg.Provider.Mode),
			PIIMasking: cfg.Provider.PIIMasking,
		},
	)

	cleanup := func() {}
	var auditLog *audit.Log
	if cfg.AuditLog != "" {
		log, err := audit.Open(cfg.AuditLog)
		if err != nil {
			// A broken audit path should not block assessments; runs still
			// persist, they just go unlogged.
			fmt.Fprintf(os.Stderr, "assayer: audit log unavailable: %v\n", err)
		} else {
			auditLog = log
			cleanup = func() { _ = log.Close() }
		}
	}

	runner := assess.NewRunner(assess.Options{
		Store:     db,
		Rules:     rules.NewStore(),
		RuleRoots: cfg.RuleRoots,
		Guard:     guard.New(),
		Drafts:    gen,
		AuditLog:  auditLog,
	})
	return runner, cleanup, nil
}
