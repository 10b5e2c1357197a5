// Package appctx holds the session and theme state that every CLI command
// shares. It is created once per process by Start and torn down by Logout.
package appctx

import (
	"context"
	"encoding/json"
	"errors"

	"micro-crm/backend/utils/logging"
	"micro-crm/crm-cli/api"
	"micro-crm/crm-cli/kvstore"
	"micro-crm/crm-cli/legacy"
)

const (
	KeyToken = "token"
	KeyUser  = "user"
	KeyTheme = "theme"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// sessionKeys are removed on logout. The theme survives.
var sessionKeys = []string{KeyToken, KeyUser, legacy.KeyClients, legacy.KeyProjects, legacy.KeyUsers}

type App struct {
	kv    kvstore.KV
	token string
	user  *api.User
	theme Theme
}

// Start restores the persisted session and theme.
func Start(ctx context.Context, kv kvstore.KV) (*App, error) {
	app := &App{kv: kv, theme: ThemeLight}

	if theme, ok, err := kv.Get(ctx, KeyTheme); err != nil {
		return nil, err
	} else if ok && Theme(theme) == ThemeDark {
		app.theme = ThemeDark
	}

	token, ok, err := kv.Get(ctx, KeyToken)
	if err != nil {
		return nil, err
	}
	if !ok || token == "" {
		return app, nil
	}
	app.token = token

	if raw, ok, err := kv.Get(ctx, KeyUser); err != nil {
		return nil, err
	} else if ok {
		var user api.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			logging.Logger.Warnf("Event ID: SESSION_USER_INVALID, Description: Stored user is unreadable: %v", err)
		} else {
			app.user = &user
		}
	}
	return app, nil
}

func (a *App) Token() string         { return a.token }
func (a *App) User() *api.User       { return a.user }
func (a *App) Theme() Theme          { return a.theme }
func (a *App) IsAuthenticated() bool { return a.token != "" && a.user != nil }

// Login persists the token and user before exposing them.
func (a *App) Login(ctx context.Context, token string, user api.User) error {
	if token == "" {
		return errors.New("empty token")
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := a.kv.Set(ctx, KeyToken, token); err != nil {
		return err
	}
	if err := a.kv.Set(ctx, KeyUser, string(data)); err != nil {
		_ = a.kv.Delete(ctx, KeyToken)
		return err
	}
	a.token, a.user = token, &user
	return nil
}

// Logout clears the session and the locally cached collections.
func (a *App) Logout(ctx context.Context) error {
	a.token, a.user = "", nil
	var errs []error
	for _, key := range sessionKeys {
		if err := a.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) ToggleTheme(ctx context.Context) (Theme, error) {
	next := ThemeDark
	if a.theme == ThemeDark {
		next = ThemeLight
	}
	if err := a.kv.Set(ctx, KeyTheme, string(next)); err != nil {
		return a.theme, err
	}
	a.theme = next
	return next, nil
}

type MeFetcher interface {
	Me(ctx context.Context) (*api.User, error)
}

// Verify refreshes the stored user from the backend. A rejected token ends
// the session; network failures keep the cached user.
func (a *App) Verify(ctx context.Context, client MeFetcher) error {
	if a.token == "" {
		return nil
	}
	user, err := client.Me(ctx)
	if errors.Is(err, api.ErrUnauthorized) {
		logging.Logger.Info("Event ID: SESSION_EXPIRED, Description: Stored token rejected, logging out")
		return a.Logout(ctx)
	}
	if err != nil {
		return err
	}
	return a.Login(ctx, a.token, *user)
}
