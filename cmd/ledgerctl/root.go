package main

import (
	"github.com/spf13/cobra"

	"fundledger/internal/ledger/engine"
)

func newRootCommand(eng *engine.Engine) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Fund ledger core: tranche accounting, HWM fees, and backups",
	}

	root.AddCommand(
		addInvestorCommand(eng),
		updateInvestorCommand(eng),
		ensureFundManagerCommand(eng),
		depositCommand(eng),
		withdrawCommand(eng),
		navUpdateCommand(eng),
		fmWithdrawCommand(eng),
		deleteTransactionCommand(eng),
		undoTransactionCommand(eng),
		previewFeesCommand(eng),
		applyFeesCommand(eng),
		reportCommand(eng),
		manualBackupCommand(eng),
		listBackupsCommand(eng),
		restoreBackupCommand(eng),
	)
	return root
}
