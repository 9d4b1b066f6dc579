package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	"go.uber.org/zap"
)

var faucetCmd = &cobra.Command{
	Use:   "faucet <address>",
	Short: "Transfer the configured faucet amount to an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, err := ss58.ParseAccountID(args[0])
		if err != nil {
			return errors.Wrapf(err, "invalid address '%s'", args[0])
		}
		return runFaucet(cmd, dest)
	},
}

func runFaucet(cmd *cobra.Command, dest ss58.AccountID) error {
	cfg, l, err := loadConfig()
	if err != nil {
		return err
	}
	defer l.Sync() //nolint:errcheck

	ctx := cmd.Context()
	p, sink, err := newProvisioner(ctx, cfg, l, provisionerOptions{})
	if err != nil {
		return err
	}
	defer sink.Flush()

	if err := p.Faucet(ctx, dest); err != nil {
		l.Sugar().Errorw("Faucet failed", zap.String("destination", dest.String()), zap.Error(err))
		return err
	}
	return nil
}
