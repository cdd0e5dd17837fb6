// Package cli implements portalctl, a terminal client for the session
// controller.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd assembles portalctl. Every subcommand builds its Runtime with
// build when it runs.
func NewRootCmd(build Builder, version string) *cobra.Command {
	root := &cobra.Command{
		Use:          "portalctl",
		Short:        "Sign in to the Rankboard portals and inspect routing",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("portalctl version %s\n", version))

	root.AddCommand(NewLoginCmd(build))
	root.AddCommand(NewLogoutCmd(build))
	root.AddCommand(NewWhoamiCmd(build))
	root.AddCommand(NewRouteCmd(build))
	root.AddCommand(NewVersionCmd(version))
	return root
}

func NewVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the portalctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "portalctl version %s\n", version)
		},
	}
}
