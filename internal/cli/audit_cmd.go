package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evigdal/assayer/internal/audit"
	"github.com/evigdal/assayer/internal/config"
)

var auditLogPath string

func init() {
	auditVerifyCmd.Flags().StringVar(&auditLogPath, "log", "", "run log path (default from config)")
	auditCmd.AddCommand(auditVerifyCmd)
	rootCmd.AddCommand(auditCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the assessment run log",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the run log's hash chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := auditLogPath
		if path == "" {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			path = cfg.AuditLog
		}

		result := audit.Verify(path)
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))

		if !result.Valid {
			return fmt.Errorf("run log chain broken at line %d", result.ErrorLine)
		}
		return nil
	},
}
