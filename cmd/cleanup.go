package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupOlderThan int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Apply retention to audit logs or sessions",
	Long:  `Run the same age-bounded retention cleanup the admin API exposes. Entries are recorded as system actions.`,
}

var cleanupAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Delete audit log entries older than --older-than days",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := initializeDependencies()
		if err != nil {
			return err
		}
		defer deps.Close()

		days := retentionDays(deps.Config.Audit.DefaultRetentionDays)
		result, err := deps.AuditService.Cleanup(context.Background(), days)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d audit log entries older than %d days\n", result.DeletedCount, result.OlderThanDays)
		return nil
	},
}

var cleanupSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Delete inactive or expired sessions older than --older-than days",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := initializeDependencies()
		if err != nil {
			return err
		}
		defer deps.Close()

		days := retentionDays(deps.Config.Audit.DefaultRetentionDays)
		result, err := deps.AuthService.CleanupSessions(context.Background(), days)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d sessions older than %d days\n", result.DeletedCount, result.OlderThanDays)
		return nil
	},
}

func retentionDays(def int) int {
	if cleanupOlderThan > 0 {
		return cleanupOlderThan
	}
	return def
}

func init() {
	cleanupCmd.PersistentFlags().IntVar(&cleanupOlderThan, "older-than", 0, "age in days; defaults to audit.default_retention_days")
	cleanupCmd.AddCommand(cleanupAuditCmd)
	cleanupCmd.AddCommand(cleanupSessionsCmd)
}
