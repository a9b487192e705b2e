package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the network operations HTTP API",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := run(cmd.Context(), args, withAPI); err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(apiCmd)
}
