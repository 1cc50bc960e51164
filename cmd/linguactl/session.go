package main

import (
	"fmt"

	"github.com/Abraxas-365/lingua/pkg/authclient"
	"github.com/spf13/cobra"
)

func newInvitationCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invitation",
		Short: "Manage the pending invitation code",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <code>",
			Short: "Keep an invitation code for the next sign-in or sign-up",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return s.coord.SetInvitationCode(args[0])
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Drop the pending invitation code",
			RunE: func(cmd *cobra.Command, args []string) error {
				return s.coord.SetInvitationCode("")
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the pending invitation code",
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(s.out, s.coord.State().InvitationCode)
				return nil
			},
		},
	)
	return cmd
}

func newSuperTokenCmd(s *session) *cobra.Command {
	var password, otp string

	cmd := &cobra.Command{
		Use:   "super-token",
		Short: "Re-authenticate to unlock sensitive operations",
		Long: `Re-authenticate with your password, or with an emailed code when the
account has no password (send it with 'linguactl super-token send-code').`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := s.token()
			if err != nil {
				return err
			}
			if password == "" && otp == "" {
				return fmt.Errorf("--password or --otp is required")
			}

			s.coord.WaitForSuperToken(authclient.SuperTokenAction{
				OnSuccess: func() { fmt.Fprintln(s.out, "Super token granted") },
				OnCancel:  func() { fmt.Fprintln(s.out, "Super token request cancelled") },
			})
			resp, err := s.api.GenerateSuperToken(cmd.Context(), tok, password, otp)
			if err != nil {
				s.coord.SuperTokenRequestCancel()
				return err
			}
			return s.coord.SuperTokenRequestSuccess(cmd.Context(), resp.AccessToken)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&otp, "otp", "", "emailed one-time code")

	cmd.AddCommand(&cobra.Command{
		Use:   "send-code",
		Short: "Email a one-time code",
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := s.token()
			if err != nil {
				return err
			}
			if err := s.api.SendSuperTokenOTP(cmd.Context(), tok); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Code sent")
			return nil
		},
	})
	return cmd
}

func newImpersonateCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "impersonate <user-id>",
		Short: "Act as another user (administrators only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := s.token()
			if err != nil {
				return err
			}
			resp, err := s.api.ImpersonationToken(cmd.Context(), tok, args[0])
			if err != nil {
				return err
			}
			if err := s.coord.DebugCustomerAccount(cmd.Context(), resp.AccessToken); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Now acting as %s\n", s.coord.UserID())
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "exit",
		Short: "Return to the administrator session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.coord.State().AdminToken == "" {
				return fmt.Errorf("not impersonating anyone")
			}
			if err := s.coord.ExitDebugCustomerAccount(cmd.Context()); err != nil {
				return err
			}
			printSignedIn(s)
			return nil
		},
	})
	return cmd
}

func newProviderChangeCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider-change",
		Short: "Resolve a pending sign-in provider change",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Report whether a change is pending",
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintf(s.out, "pending: %t\n", s.coord.GetAuthProviderChange())
				return nil
			},
		},
		&cobra.Command{
			Use:   "accept",
			Short: "Move the account to the new provider",
			RunE: func(cmd *cobra.Command, args []string) error {
				tok, err := s.token()
				if err != nil {
					return err
				}
				resp, err := s.api.AcceptProviderChange(cmd.Context(), tok)
				if err != nil {
					return err
				}
				if err := s.coord.SetAuthProviderChange(false); err != nil {
					return err
				}
				if err := s.coord.HandleAfterLogin(cmd.Context(), resp); err != nil {
					return err
				}
				fmt.Fprintln(s.out, "Sign-in provider changed")
				return nil
			},
		},
		&cobra.Command{
			Use:   "reject",
			Short: "Keep the current provider",
			RunE: func(cmd *cobra.Command, args []string) error {
				tok, err := s.token()
				if err != nil {
					return err
				}
				if err := s.api.RejectProviderChange(cmd.Context(), tok); err != nil {
					return err
				}
				return s.coord.SetAuthProviderChange(false)
			},
		},
	)
	return cmd
}
