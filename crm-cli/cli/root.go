// Package cli wires the crm-cli cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"micro-crm/backend/utils/logging"
	"micro-crm/crm-cli/api"
	"micro-crm/crm-cli/appctx"
	"micro-crm/crm-cli/kvstore"
	"micro-crm/crm-cli/legacy"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultAPIURL = "http://localhost:8000"
	mongoDatabase = "crm_cli"
)

var errServiceUnavailable = errors.New("the CRM service could not be reached, try again later")

// openStore selects the kv backend from the --store value.
var openStore = func(ctx context.Context, location string) (kvstore.KV, error) {
	switch {
	case location == "memory":
		return kvstore.NewMemory(), nil
	case strings.HasPrefix(location, "mongodb://"), strings.HasPrefix(location, "mongodb+srv://"):
		return kvstore.OpenMongo(ctx, location, mongoDatabase)
	default:
		return kvstore.OpenSQLite(location)
	}
}

// session is built before every command and closed after it.
type session struct {
	cfg    *viper.Viper
	kv     kvstore.KV
	app    *appctx.App
	client *api.Client
}

func (s *session) open(ctx context.Context) error {
	kv, err := openStore(ctx, s.cfg.GetString("store"))
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	app, err := appctx.Start(ctx, kv)
	if err != nil {
		_ = kv.Close()
		return err
	}
	s.kv, s.app = kv, app
	s.client = api.New(s.cfg.GetString("api_url"), nil).WithToken(app.Token())
	return nil
}

func (s *session) close() {
	if s.kv != nil {
		_ = s.kv.Close()
	}
}

func (s *session) records(ctx context.Context) (*legacy.Store, error) {
	return legacy.Open(ctx, s.kv)
}

// openAuthenticated is the pre-run hook for commands that need a session.
func (s *session) openAuthenticated(cmd *cobra.Command, args []string) error {
	if err := s.open(cmd.Context()); err != nil {
		return err
	}
	if !s.app.IsAuthenticated() {
		s.close()
		return errors.New("not logged in, run `crm-cli login` first")
	}
	return nil
}

// remoteError turns transport failures into a generic message and keeps
// service responses readable.
func (s *session) remoteError(ctx context.Context, action string, err error) error {
	var apiErr *api.Error
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		logging.Logger.Warnf("Event ID: CLI_UNAUTHORIZED, Description: %s rejected: %v", action, err)
		return errors.New("session is not valid, run `crm-cli login` again")
	case errors.As(err, &apiErr):
		if apiErr.Detail != "" {
			return fmt.Errorf("%s failed: %s", action, apiErr.Detail)
		}
		return fmt.Errorf("%s failed: %s", action, apiErr.Kind)
	default:
		logging.Logger.Errorf("Event ID: CLI_REQUEST_FAILED, Description: %s failed: %v", action, err)
		return errServiceUnavailable
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".crm-cli", "crm.db")
	}
	return filepath.Join(home, ".crm-cli", "crm.db")
}

// NewRootCommand builds the command tree with its own configuration.
func NewRootCommand() *cobra.Command {
	s := &session{cfg: viper.New()}

	root := &cobra.Command{
		Use:           "crm-cli",
		Short:         "Command-line client for the micro CRM",
		Long:          "crm-cli talks to the CRM gateway for tasks and projects and keeps the\nlegacy clients, projects and users collections in a local store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			s.close()
		},
	}

	root.PersistentFlags().String("api-url", defaultAPIURL, "Gateway base URL")
	root.PersistentFlags().String("store", defaultStorePath(), "Local store: a sqlite path, a mongodb:// URI or \"memory\"")

	s.cfg.SetEnvPrefix("CRM")
	s.cfg.AutomaticEnv()
	_ = s.cfg.BindPFlag("api_url", root.PersistentFlags().Lookup("api-url"))
	_ = s.cfg.BindPFlag("store", root.PersistentFlags().Lookup("store"))

	root.AddCommand(
		newLoginCmd(s),
		newLogoutCmd(s),
		newWhoamiCmd(s),
		newThemeCmd(s),
		newClientsCmd(s),
		newProjectsCmd(s),
		newUsersCmd(s),
		newTasksCmd(s),
	)
	return root
}

// Execute runs the command tree and reports the error on stderr.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
