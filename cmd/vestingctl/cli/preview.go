package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tokenvesting/internal/vesting"
	solanautil "tokenvesting/pkg/solana"
)

// PreviewCmd evaluates a schedule offline.
func PreviewCmd() *cobra.Command {
	var (
		s       vesting.Schedule
		claimed uint64
		at      int64
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Compute vested and claimable amounts for a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("at") {
				at = time.Now().Unix()
			}
			q, err := s.Quote(claimed, at)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(q, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().Int64Var(&s.Start, "start", 0, "vesting start (unix seconds)")
	cmd.Flags().Int64Var(&s.Cliff, "cliff", 0, "cliff (unix seconds)")
	cmd.Flags().Int64Var(&s.End, "end", 0, "vesting end (unix seconds)")
	cmd.Flags().Uint64Var(&s.Total, "total", 0, "total amount in base units")
	cmd.Flags().Uint64Var(&claimed, "claimed", 0, "amount already claimed")
	cmd.Flags().Int64Var(&at, "at", 0, "evaluation time (default now)")
	cmd.MarkFlagRequired("end")
	cmd.MarkFlagRequired("total")
	return cmd
}

// DeriveCmd prints the addresses a company's pool and grants live at.
func DeriveCmd() *cobra.Command {
	var programID, company, beneficiary string
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive pool, treasury and grant addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := solanautil.NewDeriver(programID)
			if err != nil {
				return err
			}
			pool, poolBump, err := d.PoolAddress(company)
			if err != nil {
				return err
			}
			treasury, treasuryBump, err := d.TreasuryAddress(company)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "program:  %s\n", d.ProgramID())
			fmt.Fprintf(w, "pool:     %s (bump %d)\n", pool, poolBump)
			fmt.Fprintf(w, "treasury: %s (bump %d)\n", treasury, treasuryBump)
			if beneficiary != "" {
				grant, bump, err := d.GrantAddress(beneficiary, pool)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "grant:    %s (bump %d)\n", grant, bump)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&programID, "program-id", "", "vesting program id (default built-in)")
	cmd.Flags().StringVar(&company, "company", "", "company name")
	cmd.Flags().StringVar(&beneficiary, "beneficiary", "", "beneficiary address")
	cmd.MarkFlagRequired("company")
	return cmd
}
