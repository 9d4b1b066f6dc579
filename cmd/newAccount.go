package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/staex-io/did-provisioner/pkg/provisioner"
)

var newAccountCmd = &cobra.Command{
	Use:   "new-account",
	Short: "Generate a new account and optionally fund it from the faucet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fund, err := cmd.Flags().GetBool("faucet")
		if err != nil {
			return err
		}
		account, err := provisioner.NewAccount()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seed phrase: %s\n", account.Phrase)
		fmt.Fprintf(cmd.OutOrStdout(), "Address: %s\n", account.Address)
		if !fund {
			return nil
		}
		return runFaucet(cmd, account.Keypair.AccountID())
	},
}
