package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/schoolboyqueue/spectrace/internal/build"
	"github.com/schoolboyqueue/spectrace/internal/cli/shared"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  "Display version, commit, build date, and Go version information for spectrace",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "spectrace version %s\n", build.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Built from commit: %s\n", build.Commit)
		fmt.Fprintf(cmd.OutOrStdout(), "Build date: %s\n", build.BuildDate)
		fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
	},
}

func init() {
	versionCmd.GroupID = shared.GroupConfiguration
	rootCmd.AddCommand(versionCmd)
}
