package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fundledger/internal/ledger/engine"
)

func previewFeesCommand(eng *engine.Engine) *cobra.Command {
	var period, endDate, nav string

	cmd := &cobra.Command{
		Use:   "preview-fees",
		Short: "Deterministic, read-only annual fee preview (§4.5.2)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if period == "" {
				return fmt.Errorf("--period is required")
			}
			endD, err := parseDate(endDate, "--end-date")
			if err != nil {
				return err
			}
			navD, err := parseDecimal(nav, "--nav")
			if err != nil {
				return err
			}
			preview, err := eng.PreviewFees(cmd.Context(), period, endD, navD)
			if err != nil {
				return err
			}
			fmt.Printf("price_per_unit=%s total_fee=%s total_fee_units=%s confirm_token=%s\n",
				preview.Price, preview.TotalFee, preview.TotalFeeUnits, preview.ConfirmToken)
			for _, inv := range preview.Investors {
				fmt.Printf("  investor=%d fee_amount=%s fee_units=%s units_before=%s units_after=%s\n",
					inv.InvestorID, inv.FeeAmount, inv.FeeUnits, inv.UnitsBefore, inv.UnitsAfter)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "Fiscal period label (required)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "Calculation end date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&nav, "nav", "", "Total NAV at end-date (required)")
	return cmd
}

func applyFeesCommand(eng *engine.Engine) *cobra.Command {
	var period, endDate, nav, confirmToken string
	var ackRisk, ackBackup bool

	cmd := &cobra.Command{
		Use:   "apply-fees",
		Short: "Commit the preview computed by preview-fees (§4.5.3)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if period == "" || confirmToken == "" {
				return fmt.Errorf("--period and --confirm-token are required")
			}
			endD, err := parseDate(endDate, "--end-date")
			if err != nil {
				return err
			}
			navD, err := parseDecimal(nav, "--nav")
			if err != nil {
				return err
			}
			preview, err := eng.ApplyFees(cmd.Context(), engine.ApplyFeesInput{
				Period: period, EndDate: endD, TotalNAV: navD, ConfirmToken: confirmToken,
				AcknowledgeRisk: ackRisk, AcknowledgeBackup: ackBackup,
			})
			if err != nil {
				return err
			}
			fmt.Printf("applied: total_fee=%s total_fee_units=%s across %d investors\n",
				preview.TotalFee, preview.TotalFeeUnits, len(preview.Investors))
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "Fiscal period label (required)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "Calculation end date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&nav, "nav", "", "Total NAV at end-date (required)")
	cmd.Flags().StringVar(&confirmToken, "confirm-token", "", "Token returned by preview-fees (required)")
	cmd.Flags().BoolVar(&ackRisk, "acknowledge-risk", false, "Acknowledge the fee-application risk gate")
	cmd.Flags().BoolVar(&ackBackup, "acknowledge-backup", false, "Acknowledge a backup has been taken")
	return cmd
}
