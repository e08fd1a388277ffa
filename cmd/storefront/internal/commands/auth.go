package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/storefront/internal/client"
	"github.com/wolfeidau/storefront/internal/tokenstore"
)

// RegisterCmd creates an account.
type RegisterCmd struct {
	Email    string `arg:"" help:"Email address for the account"`
	Password string `help:"Account password" required:"" env:"STOREFRONT_PASSWORD"`
	Username string `help:"Display name"`
}

func (c *RegisterCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.client.Register(ctx, client.RegisterRequest{
		Username: c.Username,
		Email:    c.Email,
		Password: c.Password,
	})
	if err != nil {
		return apiError("register", err)
	}

	fmt.Fprintf(a.out, "Registered %s (id %s)\n", user.Email, user.ID)
	fmt.Fprintf(a.out, "Run `storefront login %s` to sign in.\n", user.Email)

	return nil
}

// LoginCmd exchanges credentials for a token and starts a session.
type LoginCmd struct {
	Email    string `arg:"" help:"Account email"`
	Password string `help:"Account password" required:"" env:"STOREFRONT_PASSWORD"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.client.Login(ctx, c.Email, c.Password)
	if err != nil {
		if client.IsUnauthorized(err) {
			return fmt.Errorf("failed to log in: %w", ErrInvalidCredentials)
		}
		return apiError("log in", err)
	}

	// drop whatever identity an earlier login left behind
	if err := a.tokens.Remove(); err != nil {
		log.Warn().Err(err).Msg("failed to clear previous credential")
	}

	if err := a.session.Login(res.AccessToken, c.Email, ""); err != nil {
		return err
	}

	// the login response carries no id, resolve it with the new token
	user, err := a.client.Me(ctx)
	if err != nil {
		if client.IsUnauthorized(err) {
			return apiError("verify login", err)
		}
		log.Warn().Err(err).Msg("failed to resolve user id, checkout is unavailable until the next verification")
	} else if err := a.session.Login(res.AccessToken, user.Email, user.ID); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", a.session.UserEmail())

	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	a.session.Logout()

	return nil
}

// WhoamiCmd verifies the stored token and shows the signed in user.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	snap := a.session.Snapshot()

	fmt.Fprintf(a.out, "Email:   %s\n", snap.UserEmail)
	fmt.Fprintf(a.out, "User ID: %s\n", snap.UserID)
	if exp, ok := tokenstore.Expiry(snap.Token); ok {
		fmt.Fprintf(a.out, "Expires: %s (in %s)\n", exp.Local().Format(time.RFC3339), time.Until(exp).Round(time.Minute))
	}

	return nil
}
