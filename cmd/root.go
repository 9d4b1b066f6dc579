package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/staex-io/did-provisioner/internal/config"
)

var rootCmd = &cobra.Command{
	Use:          "did-provisioner",
	Short:        "Provision and watch a DID record stored in an ink! contract",
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().String(config.ConfigPath, config.DefaultConfigPath, `Path to the TOML config file; a missing file means defaults`)
	rootCmd.PersistentFlags().String("log-level", "", `trace, debug, info, warn or error`)
	rootCmd.PersistentFlags().String("rpc-url", "", `e.g. "ws://127.0.0.1:9944"`)
	rootCmd.PersistentFlags().Uint64("did.explorer-start-block", 0, `Block height the explorer starts from`)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newAccountCmd)
	rootCmd.AddCommand(faucetCmd)

	configCmd.Flags().StringP("output", "o", "toml", `Output format, "toml" or "yaml"`)
	newAccountCmd.Flags().Bool("faucet", false, `Fund the new account from the faucet`)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	config.BindEnv(viper.GetViper())
}
