package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evigdal/assayer/internal/config"
	"github.com/evigdal/assayer/internal/store"
)

func init() {
	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert a demo tenant and system version into the database",
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

		res, err := db.Seed(cmd.Context())
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}

		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}
