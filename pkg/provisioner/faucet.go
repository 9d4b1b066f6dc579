package provisioner

import (
	"context"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/extrinsic"
	"github.com/staex-io/did-provisioner/pkg/signer"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	"github.com/staex-io/did-provisioner/pkg/units"
	"go.uber.org/zap"
)

func dot(a units.Amount) string {
	return a.Decimal().String()
}

func (p *Provisioner) freeBalance(ctx context.Context, account ss58.AccountID) (units.Amount, error) {
	best, err := p.chain.ResolveBlockHash(ctx, nil)
	if err != nil {
		return units.Amount{}, err
	}
	return p.chain.GetFreeBalance(ctx, account, best)
}

// Faucet transfers the configured amount from the faucet account to dest
// and logs both balances around the transfer.
func (p *Provisioner) Faucet(ctx context.Context, dest ss58.AccountID) error {
	faucet, err := signer.FromSecretUri(p.config.Faucet.SecretUri)
	if err != nil {
		return errors.Wrap(err, "invalid faucet secret")
	}
	amount, err := units.FromDotUint64(p.config.Faucet.Amount).U128()
	if err != nil {
		return err
	}

	faucetBalance, err := p.freeBalance(ctx, faucet.AccountID())
	if err != nil {
		return errors.Wrap(err, "failed to read faucet balance")
	}
	destBalance, err := p.freeBalance(ctx, dest)
	if err != nil {
		return errors.Wrap(err, "failed to read destination balance")
	}
	p.logger.Sugar().Infow("Balances before faucet",
		zap.String("faucet", faucet.GetAddress()),
		zap.String("faucetBalance", dot(faucetBalance)),
		zap.String("destination", dest.String()),
		zap.String("destinationBalance", dot(destBalance)),
	)

	rt, err := p.chain.Runtime(ctx)
	if err != nil {
		return err
	}
	call, err := extrinsic.TransferAllowDeath(rt.Metadata, dest, amount)
	if err != nil {
		return errors.Wrap(err, "failed to build transfer")
	}
	if _, err := p.Pipeline.Submit(ctx, call, faucet); err != nil {
		return errors.Wrap(err, "faucet transfer failed")
	}

	destBalance, err = p.freeBalance(ctx, dest)
	if err != nil {
		return errors.Wrap(err, "failed to read destination balance")
	}
	p.logger.Sugar().Infow("Balance after faucet",
		zap.String("destination", dest.String()),
		zap.String("destinationBalance", dot(destBalance)),
	)
	return nil
}
