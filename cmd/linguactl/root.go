package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Abraxas-365/lingua/pkg/authclient"
	"github.com/spf13/cobra"
)

// session is built once per invocation from the persistent flags.
type session struct {
	api   *authclient.HTTPAPI
	coord *authclient.Coordinator
	out   io.Writer
}

// token returns the current session token or fails when signed out.
func (s *session) token() (string, error) {
	tok := s.coord.State().Token
	if tok == "" {
		return "", fmt.Errorf("not signed in, run 'linguactl login' first")
	}
	return tok, nil
}

// terminalNavigator prints the URLs a browser would follow.
type terminalNavigator struct{ out io.Writer }

func (n terminalNavigator) Replace(string) {}

func (n terminalNavigator) Assign(url string) {
	fmt.Fprintf(n.out, "Open this URL in a browser to continue:\n  %s\n", url)
}

type terminalMessenger struct{ out io.Writer }

func (m terminalMessenger) Success(key string) {
	if key == authclient.MessageSignUpSuccess {
		fmt.Fprintln(m.out, "Account created.")
		return
	}
	fmt.Fprintln(m.out, key)
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".lingua-session.yaml"
	}
	return filepath.Join(dir, "lingua", "session.yaml")
}

func newRootCmd() *cobra.Command {
	var (
		serverURL   string
		sessionPath string
		origin      string
	)
	s := &session{}

	rootCmd := &cobra.Command{
		Use:   "linguactl",
		Short: "Sign in to a lingua server",
		Long: `linguactl manages a lingua session from the terminal.

The session token, pending invitation code and SSO state are kept in a
YAML file so that each command continues where the previous one left off.

Examples:
  linguactl login --username ana@example.com --password secret
  linguactl sso login acme.com
  linguactl sso callback --code <code> --state <state>
  linguactl whoami`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			storage, err := authclient.OpenFileStorage(sessionPath)
			if err != nil {
				return fmt.Errorf("open session %s: %w", sessionPath, err)
			}
			s.out = cmd.OutOrStdout()
			s.api = authclient.NewHTTPAPI(serverURL, nil)
			s.coord = authclient.NewCoordinator(s.api, storage,
				authclient.WithNavigator(terminalNavigator{out: s.out}),
				authclient.WithMessenger(terminalMessenger{out: s.out}),
				authclient.WithOrigin(origin),
			)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("LINGUA_SERVER", "http://localhost:8080"), "lingua server base URL")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", envOr("LINGUA_SESSION", defaultSessionPath()), "session file")
	rootCmd.PersistentFlags().StringVar(&origin, "origin", envOr("LINGUA_ORIGIN", "http://localhost:3000"), "frontend origin used for OAuth redirect URIs")

	rootCmd.AddCommand(
		newLoginCmd(s),
		newLogoutCmd(s),
		newSignUpCmd(s),
		newOAuthCmd(s),
		newSsoCmd(s),
		newWhoamiCmd(s),
		newConfigCmd(s),
		newInvitationCmd(s),
		newSuperTokenCmd(s),
		newImpersonateCmd(s),
		newProviderChangeCmd(s),
	)
	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
