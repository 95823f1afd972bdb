package commands

import (
	"context"
	"fmt"
	"os"
	"workorder-invoicer/internal/components/telemetry"
	"workorder-invoicer/internal/config"

	"github.com/spf13/cobra"
)

var (
	configName *string
	verbose    *bool
	loaded     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "invoicer",
	Short: "invoicer builds work order invoices from the Verifone portal and saves Ingenico closed jobs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*verbose)
		cfg, err := config.Load(*configName)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		loaded = cfg
		return nil
	},
	SilenceUsage: true,
}

func init() {
	configName = rootCmd.PersistentFlags().String("config", "config.json5", "The config file, looked up from the working directory upwards.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
