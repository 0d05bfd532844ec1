package main

import (
	"github.com/spf13/cobra"
)

var (
	dsnFlag        string
	schemaFlag     string
	logLevelFlag   string
	noTransactions bool
)

var rootCmd = &cobra.Command{
	Use:          "scenariodb",
	Short:        "scenariodb - scenario management for optimization model data",
	Long:         "scenariodb keeps named copies of optimization model inputs and outputs in one store, records cell edits and runs the model per scenario.",
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "db", "", "Store DSN: a SQLite path, sqlite://, postgres:// or mysql:// URL")
	rootCmd.PersistentFlags().StringVar(&schemaFlag, "schema", "", "YAML schema file replacing the built-in tables")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&noTransactions, "no-transactions", false, "Run scenario operations without a transaction")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newDuplicateCmd())
	rootCmd.AddCommand(newRenameCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newMCPCmd())
}
