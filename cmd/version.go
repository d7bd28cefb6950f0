package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the version of vpm-bootstrap and the user agent it sends.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", Version)
		if Cfg != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "User-Agent: %s\n", Cfg.API.UserAgent)
		}
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
