package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the dashboard in one process",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := run(cmd.Context(), args, withAPI, withDashboard); err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
