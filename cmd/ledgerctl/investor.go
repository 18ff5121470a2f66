package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fundledger/internal/ledger/domain"
	"fundledger/internal/ledger/engine"
)

func addInvestorCommand(eng *engine.Engine) *cobra.Command {
	var id int64
	var name, phone, email, address, joinDate string

	cmd := &cobra.Command{
		Use:   "add-investor",
		Short: "Create a new investor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return fmt.Errorf("--id is required and must be non-zero (0 is reserved for the Fund Manager)")
			}
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			inv := domain.Investor{ID: id, Name: name, Phone: phone, Email: email, Address: address}
			if joinDate != "" {
				d, err := time.Parse("2006-01-02", joinDate)
				if err != nil {
					return fmt.Errorf("invalid --join-date (expected YYYY-MM-DD): %w", err)
				}
				inv.JoinDate = d
			}
			if err := eng.AddInvestor(cmd.Context(), inv); err != nil {
				return err
			}
			fmt.Printf("investor %d (%s) created\n", inv.ID, inv.Name)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Investor id (required, non-zero)")
	cmd.Flags().StringVar(&name, "name", "", "Investor name (required)")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone")
	cmd.Flags().StringVar(&email, "email", "", "Email")
	cmd.Flags().StringVar(&address, "address", "", "Address")
	cmd.Flags().StringVar(&joinDate, "join-date", "", "Join date (YYYY-MM-DD)")
	return cmd
}

func updateInvestorCommand(eng *engine.Engine) *cobra.Command {
	var id int64
	var name, phone, email, address string

	cmd := &cobra.Command{
		Use:   "update-investor",
		Short: "Update an existing investor's descriptive fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return fmt.Errorf("--id is required")
			}
			inv := domain.Investor{ID: id, Name: name, Phone: phone, Email: email, Address: address}
			if err := eng.UpdateInvestor(cmd.Context(), inv); err != nil {
				return err
			}
			fmt.Printf("investor %d updated\n", id)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Investor id (required)")
	cmd.Flags().StringVar(&name, "name", "", "Investor name")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone")
	cmd.Flags().StringVar(&email, "email", "", "Email")
	cmd.Flags().StringVar(&address, "address", "", "Address")
	return cmd
}

func ensureFundManagerCommand(eng *engine.Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-fund-manager",
		Short: "Create the singleton Fund Manager investor (id 0) if absent",
		RunE: func(cmd *cobra.Command, args []string) error {
			fm, err := eng.EnsureFundManager(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("fund manager investor id=%d name=%s\n", fm.ID, fm.Name)
			return nil
		},
	}
}
