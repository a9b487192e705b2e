package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// dashboardCmd represents the dashboard command
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Run only the dashboard, pointed at the configured API base URL",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := run(cmd.Context(), args, withDashboard); err != nil {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
