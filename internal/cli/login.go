package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rankboard/portalgate/application/port/inbound"
	apperr "github.com/rankboard/portalgate/domain/error"
)

// NewLoginCmd creates "login member|backoffice".
func NewLoginCmd(build Builder) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "login <member|backoffice>",
		Short:     "Sign in to the member portal or the admin/staff back office",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(inbound.LoginKindMember), string(inbound.LoginKindBackOffice)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, build, inbound.LoginKind(args[0]))
		},
	}

	cmd.Flags().String("credential", "", "Identity token issued by the identity provider")
	cmd.Flags().String("code", "", "Authorization code to exchange with the identity provider")
	cmd.Flags().Bool("json", false, "Print the result as JSON")
	cmd.MarkFlagsOneRequired("credential", "code")
	cmd.MarkFlagsMutuallyExclusive("credential", "code")

	return cmd
}

func runLogin(cmd *cobra.Command, build Builder, kind inbound.LoginKind) error {
	credential, _ := cmd.Flags().GetString("credential")
	code, _ := cmd.Flags().GetString("code")
	asJSON, _ := cmd.Flags().GetBool("json")
	req := inbound.LoginRequest{Credential: credential, Code: code}

	return withRuntime(cmd.Context(), build, func(rt *Runtime) error {
		var (
			res *inbound.LoginResponse
			err error
		)
		if kind == inbound.LoginKindBackOffice {
			res, err = rt.Auth.LoginBackOffice(cmd.Context(), req)
		} else {
			res, err = rt.Auth.LoginMember(cmd.Context(), req)
		}
		if err != nil {
			return loginExitError(err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, res)
		}
		fmt.Fprintf(out, "Signed in as %s (%s)\n", displayName(res), res.Role)
		fmt.Fprintf(out, "Home: %s\n", res.Redirect.Location)
		return nil
	})
}

func loginExitError(err error) error {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperr.ErrCodePersistenceFailure, apperr.ErrCodeConfigurationError:
			return exitError(exitFailure, "login failed: %s", appErr.Message)
		}
		return exitError(exitAuth, "login failed: %s", appErr.Message)
	}
	return err
}

func displayName(res *inbound.LoginResponse) string {
	if res.Profile == nil {
		return "unknown user"
	}
	if res.Profile.Email != "" {
		return res.Profile.Email
	}
	return res.Profile.FullName
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
