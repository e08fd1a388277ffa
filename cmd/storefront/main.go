package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/storefront/cmd/storefront/internal/commands"
	"github.com/wolfeidau/storefront/internal/logger"
	"github.com/wolfeidau/storefront/internal/telemetry"
)

var (
	version = "dev"
	cli     struct {
		Register     commands.RegisterCmd     `cmd:"" help:"Create an account"`
		Login        commands.LoginCmd        `cmd:"" help:"Log in"`
		Logout       commands.LogoutCmd       `cmd:"" help:"Log out and forget the stored token"`
		Whoami       commands.WhoamiCmd       `cmd:"" help:"Show the logged in user"`
		Books        commands.BooksCmd        `cmd:"" help:"Browse and manage books"`
		Genres       commands.GenresCmd       `cmd:"" help:"Browse and manage genres"`
		Cart         commands.CartCmd         `cmd:"" help:"Manage the shopping cart"`
		Checkout     commands.CheckoutCmd     `cmd:"" help:"Buy everything in the cart"`
		Transactions commands.TransactionsCmd `cmd:"" help:"Review past transactions"`
		Health       commands.HealthCmd       `cmd:"" help:"Check the API is reachable"`

		Debug     bool   `help:"Enable debug mode."`
		Config    string `help:"Config file (default: <state-dir>/config.yaml)" type:"path"`
		APIURL    string `name:"api-url" help:"Bookstore API base URL" env:"STOREFRONT_API_URL"`
		StateDir  string `help:"Directory holding the token and cart" env:"STOREFRONT_STATE_DIR"`
		Storage   string `help:"Storage backend (file, memory, redis)" env:"STOREFRONT_STORAGE_TYPE"`
		Telemetry bool   `help:"Export traces and metrics over OTLP"`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("storefront"),
		kong.Description("Bookstore storefront client."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	logger.Setup(cli.Debug)

	globals := &commands.Globals{
		Debug:      cli.Debug,
		ConfigFile: cli.Config,
		APIURL:     cli.APIURL,
		StateDir:   cli.StateDir,
		Storage:    cli.Storage,
		Version:    version,
	}

	cfg, err := globals.LoadConfig()
	cmd.FatalIfErrorf(err)

	flush := func() {}
	if cli.Telemetry || cfg.Telemetry {
		shutdown, err := telemetry.InitTelemetry(ctx, "storefront", version)
		cmd.FatalIfErrorf(err)
		flush = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to flush telemetry")
			}
		}
	}

	// FatalIfErrorf exits, flush first
	err = cmd.Run(globals)
	flush()
	cmd.FatalIfErrorf(err)
}
