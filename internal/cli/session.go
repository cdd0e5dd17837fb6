package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rankboard/portalgate/domain/routing"
)

func NewLogoutCmd(build Builder) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and wipe all locally stored portal state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), build, func(rt *Runtime) error {
				if err := rt.Session.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func NewWhoamiCmd(build Builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return withRuntime(cmd.Context(), build, func(rt *Runtime) error {
				profile, ok := rt.Session.Current()
				if !ok {
					return exitError(exitNoSession, "not signed in")
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, profile)
				}

				fmt.Fprintf(out, "Email:  %s\n", profile.Email)
				fmt.Fprintf(out, "Name:   %s\n", profile.FullName)
				fmt.Fprintf(out, "Role:   %s\n", profile.Role)
				if profile.HasUserID() {
					fmt.Fprintf(out, "UserID: %d\n", *profile.UserID)
				}
				if home, ok := routing.CanonicalHome(profile.Role); ok {
					fmt.Fprintf(out, "Home:   %s\n", home)
				} else {
					fmt.Fprintln(out, "Home:   none (unrecognized role)")
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("json", false, "Print the profile as JSON")
	return cmd
}

// NewRouteCmd prints what the role gate decides for a path with the stored
// session.
func NewRouteCmd(build Builder) *cobra.Command {
	return &cobra.Command{
		Use:   "route <path>",
		Short: "Show where the role gate sends the current session for a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), build, func(rt *Runtime) error {
				d := rt.Session.Route(args[0])
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", d.Kind, d.Portal, d.Location)
				return nil
			})
		},
	}
}
