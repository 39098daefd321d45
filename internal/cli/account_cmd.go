package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"focusflow/internal/storeclient"
)

type credentials struct {
	email       string
	password    string
	displayName string
}

func newRegisterCmd(app *App) *cobra.Command {
	var creds credentials
	cmd := newAuthCmd(app, "register", "Create an account and log in", &creds,
		func(cmd *cobra.Command) (*storeclient.AuthResult, error) {
			return app.client.Register(cmd.Context(), creds.email, creds.password, creds.displayName)
		})
	cmd.Flags().StringVar(&creds.displayName, "name", "", "name shown to other participants (defaults to the email)")
	return cmd
}

func newLoginCmd(app *App) *cobra.Command {
	var creds credentials
	return newAuthCmd(app, "login", "Log in and remember the token", &creds,
		func(cmd *cobra.Command) (*storeclient.AuthResult, error) {
			return app.client.Login(cmd.Context(), creds.email, creds.password)
		})
}

func newAuthCmd(
	app *App,
	use, short string,
	creds *credentials,
	fn func(cmd *cobra.Command) (*storeclient.AuthResult, error),
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.email == "" || creds.password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			result, err := fn(cmd)
			if err != nil {
				return fmt.Errorf("%s: %w", use, err)
			}
			if err := app.saveToken(result.Token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", result.User.Participant())
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.password, "password", "", "account password")
	return cmd
}
