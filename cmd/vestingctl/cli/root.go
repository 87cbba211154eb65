package cli

import (
	"github.com/spf13/cobra"
)

const defaultPasswordEnv = "VESTING_KEY_PASSWORD"

// NewRootCmd builds the vestingctl command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vestingctl",
		Short:         "Operator tooling for the token vesting service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(MigrateCmd())
	rootCmd.AddCommand(KeygenCmd())
	rootCmd.AddCommand(SignCmd())
	rootCmd.AddCommand(PreviewCmd())
	rootCmd.AddCommand(DeriveCmd())
	return rootCmd
}
