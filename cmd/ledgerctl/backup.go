package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fundledger/internal/ledger/engine"
)

func manualBackupCommand(eng *engine.Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Take a manual snapshot of the full ledger (§4.7)",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := eng.ManualBackup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("backup %s created at %s\n", info.ID, info.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
}

func listBackupsCommand(eng *engine.Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "list-backups",
		Short: "Enumerate archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := eng.ListBackups()
			if err != nil {
				return err
			}
			for _, b := range backups {
				fmt.Printf("%s\t%s\t%s\n", b.ID, b.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), b.Kind)
			}
			return nil
		},
	}
}

func restoreBackupCommand(eng *engine.Engine) *cobra.Command {
	var backupID, confirmPhrase string
	var createSafetyBackup bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace the ledger with an archived state (§4.7)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if backupID == "" {
				return fmt.Errorf("--backup-id is required")
			}
			if err := eng.RestoreBackup(cmd.Context(), backupID, confirmPhrase, createSafetyBackup); err != nil {
				return err
			}
			fmt.Printf("restored from backup %s\n", backupID)
			return nil
		},
	}
	cmd.Flags().StringVar(&backupID, "backup-id", "", "Archive id to restore (required)")
	cmd.Flags().StringVar(&confirmPhrase, "confirm", "", `Must be exactly "RESTORE"`)
	cmd.Flags().BoolVar(&createSafetyBackup, "safety-backup", true, "Take a safety snapshot before restoring")
	return cmd
}
