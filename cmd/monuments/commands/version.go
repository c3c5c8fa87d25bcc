package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/team-monumental/monuments-and-memorials-sub000/version"
)

// VersionCmd shows build information
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if versionJSONFlag {
			return printJSON(cmd.OutOrStdout(), info)
		}
		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", info.GoVersion, info.Platform)
		return nil
	},
}

var versionJSONFlag bool

func init() {
	VersionCmd.Flags().BoolVar(&versionJSONFlag, "json", false, "Output as JSON")
}
