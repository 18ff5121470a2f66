package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fundledger/internal/ledger/engine"
	"fundledger/internal/ledger/store"
)

func reportCommand(eng *engine.Engine) *cobra.Command {
	root := &cobra.Command{
		Use:   "report",
		Short: "Derived read views over the ledger (§4.6)",
	}
	root.AddCommand(
		reportDashboardCommand(eng),
		reportInvestorCommand(eng),
		reportTransactionsCommand(eng),
		reportNAVHistoryCommand(eng),
		reportFeeHistoryCommand(eng),
	)
	return root
}

func reportDashboardCommand(eng *engine.Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Fund-wide KPIs",
		RunE: func(cmd *cobra.Command, args []string) error {
			kpis, err := eng.ReportDashboard(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("total_nav=%s total_units=%s investors=%d total_fees_paid=%s fund_manager_value=%s gross_return=%.4f%%\n",
				kpis.TotalNAV, kpis.TotalUnits, kpis.InvestorCount, kpis.TotalFeesPaid, kpis.FundManagerValue, kpis.GrossReturnSinceInception*100)
			return nil
		},
	}
}

func reportInvestorCommand(eng *engine.Engine) *cobra.Command {
	var investorID int64
	cmd := &cobra.Command{
		Use:   "investor",
		Short: "One investor's lifetime gross/net return",
		RunE: func(cmd *cobra.Command, args []string) error {
			if investorID == 0 {
				return fmt.Errorf("--investor is required")
			}
			perf, err := eng.ReportInvestor(cmd.Context(), investorID)
			if err != nil {
				return err
			}
			fmt.Printf("investor=%d current_value=%s gross=%s net=%s gross_return=%.4f%% net_return=%.4f%%\n",
				perf.InvestorID, perf.CurrentValue, perf.Gross, perf.Net, perf.GrossReturn*100, perf.NetReturn*100)
			return nil
		},
	}
	cmd.Flags().Int64Var(&investorID, "investor", 0, "Investor id (required)")
	return cmd
}

func reportTransactionsCommand(eng *engine.Engine) *cobra.Command {
	var investorID int64
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List transactions, optionally filtered by investor",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.TransactionFilter{}
			if investorID != 0 {
				filter.InvestorID = &investorID
			}
			txns, err := eng.ReportTransactions(cmd.Context(), filter)
			if err != nil {
				return err
			}
			for _, tx := range txns {
				fmt.Printf("%d\t%s\t%s\tinvestor=%d\tamount=%s\tnav=%s\tunits_change=%s\n",
					tx.ID, tx.Date.Format("2006-01-02"), tx.Type, tx.InvestorID, tx.Amount, tx.NAV, tx.UnitsChange)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&investorID, "investor", 0, "Filter by investor id")
	return cmd
}

func reportNAVHistoryCommand(eng *engine.Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "nav-history",
		Short: "Chronological (date, nav, type) sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := eng.ReportNAVHistory(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range points {
				fmt.Printf("%s\t%s\t%s\n", p.Date.Format("2006-01-02"), p.NAV, p.Type)
			}
			return nil
		},
	}
}

func reportFeeHistoryCommand(eng *engine.Engine) *cobra.Command {
	var period string
	var investorID int64
	cmd := &cobra.Command{
		Use:   "fee-history",
		Short: "List FeeRecords, optionally filtered by period/investor",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.FeeRecordFilter{}
			if period != "" {
				filter.Period = &period
			}
			if investorID != 0 {
				filter.InvestorID = &investorID
			}
			records, err := eng.ReportFeeHistory(cmd.Context(), filter)
			if err != nil {
				return err
			}
			for _, fr := range records {
				fmt.Printf("%d\t%s\tinvestor=%d\tfee_amount=%s\tfee_units=%s\tnav_per_unit=%s\n",
					fr.ID, fr.Period, fr.InvestorID, fr.FeeAmount, fr.FeeUnits, fr.NAVPerUnit)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "Filter by fiscal period")
	cmd.Flags().Int64Var(&investorID, "investor", 0, "Filter by investor id")
	return cmd
}
