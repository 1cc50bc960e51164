package main

import (
	"fmt"

	"github.com/Abraxas-365/lingua/pkg/authclient"
	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/spf13/cobra"
)

// explain adds the next step for sign-in failures the coordinator already
// acted on.
func explain(s *session, err error) error {
	switch {
	case err == nil:
		return nil
	case errx.HasCode(err, iam.CodeThirdPartySwitchInitiated):
		fmt.Fprintln(s.out, "This account is moving to another sign-in provider. Sign in with your current method and run 'linguactl provider-change accept'.")
	case errx.HasCode(err, iam.CodeSsoLoginForced):
		fmt.Fprintln(s.out, "Your organization requires SSO. Finish with 'linguactl sso callback'.")
	}
	return err
}

func printSignedIn(s *session) {
	fmt.Fprintf(s.out, "Signed in as %s\n", s.coord.UserID())
}

func newLoginCmd(s *session) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a username and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			err := s.coord.Login(cmd.Context(), authclient.LoginRequest{Username: username, Password: password})
			if err != nil {
				return explain(s, err)
			}
			printSignedIn(s)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	return cmd
}

func newLogoutCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.coord.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Signed out")
			return nil
		},
	}
}

func newSignUpCmd(s *session) *cobra.Command {
	var req authclient.SignUpRequest

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a local account",
		Long: `Create a local account. When registrations are closed the server only
accepts sign-ups carrying an invitation code; set one first with
'linguactl invitation set <code>'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Email == "" || req.Password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			if err := s.coord.SignUp(cmd.Context(), req); err != nil {
				return err
			}
			printSignedIn(s)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	return cmd
}

func newOAuthCmd(s *session) *cobra.Command {
	var code, domain string

	cmd := &cobra.Command{
		Use:   "oauth <provider>",
		Short: "Finish an OAuth sign-in with the code the provider returned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" {
				return fmt.Errorf("--code is required")
			}
			if err := s.coord.LoginWithOAuthCode(cmd.Context(), args[0], code, domain); err != nil {
				return explain(s, err)
			}
			printSignedIn(s)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "authorization code")
	cmd.Flags().StringVar(&domain, "domain", "", "tenant domain")
	return cmd
}

func newSsoCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sso",
		Short: "Sign in through an organization's identity provider",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "login <domain>",
		Short: "Print the identity provider URL for domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.coord.LoginRedirectSso(cmd.Context(), args[0])
		},
	})

	var code, state string
	callback := &cobra.Command{
		Use:   "callback",
		Short: "Finish SSO with the code and state from the redirect",
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" || state == "" {
				return fmt.Errorf("--code and --state are required")
			}
			if err := s.coord.LoginWithSsoCallback(cmd.Context(), code, state); err != nil {
				return explain(s, err)
			}
			printSignedIn(s)
			return nil
		},
	}
	callback.Flags().StringVar(&code, "code", "", "authorization code")
	callback.Flags().StringVar(&state, "state", "", "state echoed by the identity provider")
	cmd.AddCommand(callback)

	return cmd
}

func newWhoamiCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := s.token()
			if err != nil {
				return err
			}
			user, err := s.api.CurrentUser(cmd.Context(), tok)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%s (%s)\n", user.Username, user.ID)
			fmt.Fprintf(s.out, "  name:    %s\n", user.Name)
			fmt.Fprintf(s.out, "  type:    %s\n", user.AccountType)
			fmt.Fprintf(s.out, "  admin:   %t\n", user.IsAdmin)
			if user.ImpersonatedBy != nil {
				fmt.Fprintf(s.out, "  impersonated by: %s\n", *user.ImpersonatedBy)
			}
			return nil
		},
	}
}

func newConfigCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the server's public configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := s.api.Configuration(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "authentication required: %t\n", conf.AuthenticationRequired)
			fmt.Fprintf(s.out, "registrations allowed:   %t\n", conf.RegistrationsAllowed)
			fmt.Fprintf(s.out, "oauth providers:         %v\n", conf.OAuthProviders)
			return nil
		},
	}
}
