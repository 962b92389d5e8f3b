package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finanzas/internal/cli"
	"finanzas/internal/config"
	"finanzas/internal/log"
)

var (
	version = "dev"

	appConfig *config.Config
	appLogger *log.Logger

	rootCmd = &cobra.Command{
		Use:   "finanzas",
		Short: "Transaction review and balance-impact confirmation service",
		Long: `finanzas validates transaction drafts against account balances, asks for
confirmation when a movement would leave an account low, and records the
confirmed movements in the ledger.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error), overrides LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json), overrides LOG_FORMAT")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sheetsAuthCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := cli.SignalContext(context.Background(), log.Discard())
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()
	cfg := config.Load()
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	appConfig = cfg
	appLogger = cli.SetupLogger(cfg).WithComponent(log.ComponentCLI)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "finanzas %s\n", version)
		},
	}
}
