package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/metal-toolbox/snatt/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		v, err := version.Current().AsMap()
		if err != nil {
			return err
		}

		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(b))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
