package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/agencydesk/internal/rest"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the REST backend and store the token",
		Long: `Login exchanges an email and password for a bearer token at
{api_url}/auth/signin and writes the token to config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return userError(fmt.Errorf("--email and --password are required"))
			}
			apiURL := a.v.GetString(cfgKeyAPIURL)
			if apiURL == "" {
				return userError(fmt.Errorf("api_url is not configured"))
			}
			hc := &http.Client{Timeout: a.v.GetDuration(cfgKeyTimeout)}
			token, err := rest.SignIn(cmd.Context(), hc, apiURL, email, password)
			if err != nil {
				return err
			}
			a.v.Set(cfgKeyToken, token)
			if err := a.v.WriteConfig(); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintln(a.out, "Signed in; token saved to", a.v.ConfigFileUsed())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}
