package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/staex-io/did-provisioner/internal/tracer"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync the DID record and scan the chain for its events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, l, err := loadConfig()
		if err != nil {
			return err
		}
		defer l.Sync() //nolint:errcheck

		runId := uuid.New().String()
		l = l.With(zap.String("runId", runId))
		stopTracer := tracer.StartTracer(cfg.Tracing.Enabled, runId)
		defer stopTracer()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		p, sink, err := newProvisioner(ctx, cfg, l, provisionerOptions{withContract: true})
		if err != nil {
			l.Sugar().Errorw("Failed to set up provisioner", zap.Error(err))
			return err
		}
		defer sink.Flush()

		if err := p.Run(ctx); err != nil {
			l.Sugar().Errorw("Provisioner failed", zap.Error(err))
			return err
		}
		l.Sugar().Infow("Provisioner finished")
		return nil
	},
}
