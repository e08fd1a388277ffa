package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/storefront/internal/cart"
	"github.com/wolfeidau/storefront/internal/client"
	"github.com/wolfeidau/storefront/internal/config"
	"github.com/wolfeidau/storefront/internal/session"
	"github.com/wolfeidau/storefront/internal/storage"
	"github.com/wolfeidau/storefront/internal/tokenstore"
)

// ErrInvalidCredentials is returned when the API rejects an email and password.
var ErrInvalidCredentials = errors.New("invalid email or password")

type Globals struct {
	Debug      bool
	ConfigFile string
	APIURL     string
	StateDir   string
	Storage    string
	Version    string

	// Out receives command output, stdout when nil.
	Out io.Writer

	// cfg is set by the first successful LoadConfig.
	cfg *config.Config
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// LoadConfig resolves settings from the config file, .env, environment and
// finally the global flags. The result is kept, later calls return it as is.
func (g *Globals) LoadConfig() (config.Config, error) {
	if g.cfg != nil {
		return *g.cfg, nil
	}

	file := g.ConfigFile
	if file == "" {
		dir := g.StateDir
		if dir == "" {
			dir = os.Getenv("STOREFRONT_STATE_DIR")
		}
		if dir == "" {
			dir = config.Default().StateDir
		}
		file = filepath.Join(dir, config.FileName)
	}

	cfg, err := config.Load(config.Options{File: file, DotEnv: ".env"})
	if err != nil {
		return config.Config{}, err
	}

	if g.APIURL != "" {
		cfg.APIURL = g.APIURL
	}
	if g.StateDir != "" {
		cfg.StateDir = g.StateDir
	}
	if g.Storage != "" {
		cfg.Storage.Type = g.Storage
	}

	g.cfg = &cfg

	return cfg, nil
}

// app is the wiring shared by every command: one storage medium, the token
// store and cart on top of it, the API gateway and the session subscribed to
// its 401 notifications.
type app struct {
	out     io.Writer
	storage storage.Storage
	tokens  *tokenstore.Store
	client  *client.Client
	session *session.Manager
	cart    *cart.Manager
}

func newApp(g *Globals) (*app, error) {
	cfg, err := g.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	s, err := storage.Open(cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	a := &app{out: g.out(), storage: s}

	a.tokens = tokenstore.New(s)
	a.client = client.New(cfg.ClientConfig(), a.tokens)
	a.session = session.New(a.tokens, a.client, session.NavigatorFunc(a.toLogin))
	a.session.Attach(a.client)
	a.cart = cart.Load(s)

	return a, nil
}

func (a *app) toLogin(reason string) {
	fmt.Fprintf(a.out, "%s. Run `storefront login EMAIL` to sign in.\n", capitalize(reason))
}

func (a *app) Close() {
	if c, ok := a.storage.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Debug().Err(err).Msg("failed to close storage")
		}
	}
}

// requireLogin resolves the session and fails unless someone is signed in.
func (a *app) requireLogin(ctx context.Context) error {
	a.session.Init(ctx)

	err := a.session.Require()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrInitializing):
		return fmt.Errorf("%w, try again", err)
	default:
		return fmt.Errorf("%w: run `storefront login EMAIL` first", err)
	}
}

// apiError prefixes gateway failures with the action that failed. 401s have
// already been reported by the session.
func apiError(action string, err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf("failed to %s: %w", action, session.ErrNotAuthenticated)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n < 3 {
		return string(r[:max(n, 0)])
	}
	return string(r[:n-3]) + "..."
}
