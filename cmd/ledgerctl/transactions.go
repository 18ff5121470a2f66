package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fundledger/internal/ledger/engine"
)

func parseDate(s, flag string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%s is required (YYYY-MM-DD)", flag)
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s (expected YYYY-MM-DD): %w", flag, err)
	}
	return d, nil
}

func parseDecimal(s, flag string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%s is required", flag)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %w", flag, err)
	}
	return d, nil
}

func depositCommand(eng *engine.Engine) *cobra.Command {
	var investorID int64
	var cash, nav, date string

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Apply a deposit (§4.3.1)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cashD, err := parseDecimal(cash, "--cash")
			if err != nil {
				return err
			}
			navD, err := parseDecimal(nav, "--nav")
			if err != nil {
				return err
			}
			dateD, err := parseDate(date, "--date")
			if err != nil {
				return err
			}
			txn, err := eng.Deposit(cmd.Context(), engine.DepositInput{
				InvestorID: investorID, Cash: cashD, NewTotalNAV: navD, Date: dateD,
			})
			if err != nil {
				return err
			}
			fmt.Printf("transaction %d: deposit units_change=%s nav=%s\n", txn.ID, txn.UnitsChange, txn.NAV)
			return nil
		},
	}
	cmd.Flags().Int64Var(&investorID, "investor", 0, "Investor id (required)")
	cmd.Flags().StringVar(&cash, "cash", "", "Cash amount (required)")
	cmd.Flags().StringVar(&nav, "nav", "", "New Total NAV after this deposit (required)")
	cmd.Flags().StringVar(&date, "date", "", "Transaction date YYYY-MM-DD (required)")
	return cmd
}

func withdrawCommand(eng *engine.Engine) *cobra.Command {
	var investorID int64
	var cash, nav, date string

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Apply a FIFO withdrawal (§4.3.2)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cashD, err := parseDecimal(cash, "--cash")
			if err != nil {
				return err
			}
			navD, err := parseDecimal(nav, "--nav")
			if err != nil {
				return err
			}
			dateD, err := parseDate(date, "--date")
			if err != nil {
				return err
			}
			txn, err := eng.Withdraw(cmd.Context(), engine.WithdrawInput{
				InvestorID: investorID, Cash: cashD, NewTotalNAV: navD, Date: dateD,
			})
			if err != nil {
				return err
			}
			fmt.Printf("transaction %d: withdrawal units_change=%s nav=%s\n", txn.ID, txn.UnitsChange, txn.NAV)
			return nil
		},
	}
	cmd.Flags().Int64Var(&investorID, "investor", 0, "Investor id (required)")
	cmd.Flags().StringVar(&cash, "cash", "", "Cash amount (required)")
	cmd.Flags().StringVar(&nav, "nav", "", "New Total NAV after this withdrawal (required)")
	cmd.Flags().StringVar(&date, "date", "", "Transaction date YYYY-MM-DD (required)")
	return cmd
}

func navUpdateCommand(eng *engine.Engine) *cobra.Command {
	var nav, date string

	cmd := &cobra.Command{
		Use:   "nav-update",
		Short: "Revalue the fund and ratchet every tranche's HWM (§4.3.4)",
		RunE: func(cmd *cobra.Command, args []string) error {
			navD, err := parseDecimal(nav, "--nav")
			if err != nil {
				return err
			}
			dateD, err := parseDate(date, "--date")
			if err != nil {
				return err
			}
			txn, err := eng.NAVUpdate(cmd.Context(), engine.NAVUpdateInput{NewTotalNAV: navD, Date: dateD})
			if err != nil {
				return err
			}
			fmt.Printf("transaction %d: nav_update nav=%s\n", txn.ID, txn.NAV)
			return nil
		},
	}
	cmd.Flags().StringVar(&nav, "nav", "", "New Total NAV (required)")
	cmd.Flags().StringVar(&date, "date", "", "Transaction date YYYY-MM-DD (required)")
	return cmd
}

func fmWithdrawCommand(eng *engine.Engine) *cobra.Command {
	var full bool
	var cash, nav, preNav, date string

	cmd := &cobra.Command{
		Use:   "fm-withdraw",
		Short: "Withdraw Fund Manager fee units (partial or full) (§4.4.2)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dateD, err := parseDate(date, "--date")
			if err != nil {
				return err
			}
			in := engine.FMWithdrawInput{Full: full, Date: dateD}
			if full {
				preNavD, err := parseDecimal(preNav, "--pre-nav")
				if err != nil {
					return err
				}
				in.PreTotalNAV = preNavD
			} else {
				cashD, err := parseDecimal(cash, "--cash")
				if err != nil {
					return err
				}
				navD, err := parseDecimal(nav, "--nav")
				if err != nil {
					return err
				}
				in.Cash, in.NewTotalNAV = cashD, navD
			}
			txn, err := eng.FundManagerWithdraw(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("transaction %d: fm_withdraw units_change=%s nav=%s\n", txn.ID, txn.UnitsChange, txn.NAV)
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Drain all Fund Manager tranches")
	cmd.Flags().StringVar(&cash, "cash", "", "Cash amount (required unless --full)")
	cmd.Flags().StringVar(&nav, "nav", "", "New Total NAV after withdrawal (required unless --full)")
	cmd.Flags().StringVar(&preNav, "pre-nav", "", "Total NAV just before the full drain (required with --full)")
	cmd.Flags().StringVar(&date, "date", "", "Transaction date YYYY-MM-DD (required)")
	return cmd
}

func deleteTransactionCommand(eng *engine.Engine) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "delete-transaction",
		Short: "Reverse the latest transaction of its investor (§4.4.3)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return fmt.Errorf("--id is required")
			}
			txn, err := eng.DeleteTransaction(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("transaction %d deleted (investor %d)\n", txn.ID, txn.InvestorID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Transaction id (required)")
	return cmd
}

func undoTransactionCommand(eng *engine.Engine) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "undo-transaction",
		Short: "Delete, plus a compensating audit entry (§4.4.3)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return fmt.Errorf("--id is required")
			}
			txn, err := eng.UndoTransaction(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("transaction %d undone (investor %d)\n", txn.ID, txn.InvestorID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "Transaction id (required)")
	return cmd
}
