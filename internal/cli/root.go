package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "assayer",
	Short: "Multi-tenant AI compliance assessment backend",
	Long:  "Scores an AI system's declared configuration against versioned policy rules, derives findings, and drafts remediation with a deterministic fallback and a mandatory evidence-fabrication guardrail.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.assayer/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
