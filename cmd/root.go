package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "schemaguard",
	Short: "Schemaguard analyzes model changes and guards schema migrations.",
	Long: `Schemaguard compares a microservice's model definitions against the last
generated manifest, classifies every change by risk, and only generates the
schema and migration when the changes are safe or explicitly confirmed.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "Named environment from schemaguard.toml")
}
