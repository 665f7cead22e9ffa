package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evigdal/assayer/internal/rules"
)

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesWatchCmd)
	rootCmd.AddCommand(rulesCmd)
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect policy rule directories",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <dir>...",
	Short: "Parse rule directories and report what loaded",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := rules.NewStore()
		for _, dir := range args {
			loaded, err := s.Load(dir)
			if err != nil {
				return err
			}
			snapshot, err := s.Snapshot(dir)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d rules\n", dir, len(loaded))
			for _, r := range loaded {
				fmt.Printf("  %-30s %-8s controls=%d\n", r.Key, r.Severity, len(r.OutputControlKeys))
			}
			fmt.Printf("  snapshot: %s\n", snapshot)
		}
		return nil
	},
}

var rulesWatchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Watch rule directories and pre-warm the cache on change",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := rules.NewStore()
		for _, dir := range args {
			if _, err := s.Load(dir); err != nil {
				fmt.Fprintf(os.Stderr, "assayer: initial load of %s failed: %v\n", dir, err)
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("watching %d rule director(ies), Ctrl-C to stop\n", len(args))
		return rules.NewWatcher(s, args).Run(ctx)
	},
}
