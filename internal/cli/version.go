package cmd

import (
	"fmt"

	"github.com/rohmanhakim/site-spider/internal/build"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "site-spider %s (built %s)\n", build.FullVersion(), build.BuildTime)
	},
}
