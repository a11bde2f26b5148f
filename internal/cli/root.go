// Package cli implements the triptab command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "triptab",
	Short: "Trip expense splitting and settlement server",
	Long: `triptab tracks who paid what on a trip, aggregates who owes whom,
and reconciles payment submissions against uploaded slips.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (TOML)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
