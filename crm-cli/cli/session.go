package cli

import (
	"errors"
	"fmt"

	"micro-crm/backend/utils/logging"
	"micro-crm/crm-cli/api"

	"github.com/spf13/cobra"
)

func newLoginCmd(s *session) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			resp, err := s.client.Login(cmd.Context(), email, password)
			if errors.Is(err, api.ErrUnauthorized) {
				return errors.New("invalid email or password")
			}
			if err != nil {
				return s.remoteError(cmd.Context(), "login", err)
			}
			if err := s.app.Login(cmd.Context(), resp.AccessToken, resp.User); err != nil {
				return fmt.Errorf("failed to store session: %w", err)
			}
			logging.Logger.Infof("Event ID: CLI_LOGIN, Description: Logged in as %s", resp.User.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>\n", resp.User.Name, resp.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func newLogoutCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session and the local collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.app.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(s *session) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verify {
				if err := s.app.Verify(cmd.Context(), s.client); err != nil {
					return s.remoteError(cmd.Context(), "verify session", err)
				}
			}
			out := cmd.OutOrStdout()
			if !s.app.IsAuthenticated() {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}
			user := s.app.User()
			fmt.Fprintf(out, "%s <%s> (%s)\n", user.Name, user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "Check the stored token against the server")
	return cmd
}

func newThemeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [toggle]",
		Short:     "Show or toggle the light/dark theme",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			theme := s.app.Theme()
			if len(args) == 1 {
				var err error
				if theme, err = s.app.ToggleTheme(cmd.Context()); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Theme: %s\n", theme)
			return nil
		},
	}
}
