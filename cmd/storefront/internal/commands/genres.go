package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfeidau/storefront/internal/client"
)

type GenresCmd struct {
	List   GenresListCmd   `cmd:"" default:"withargs" help:"List genres"`
	Show   GenresShowCmd   `cmd:"" help:"Show a genre"`
	Add    GenresAddCmd    `cmd:"" help:"Add a genre"`
	Update GenresUpdateCmd `cmd:"" help:"Rename a genre"`
	Delete GenresDeleteCmd `cmd:"" help:"Delete a genre"`
}

type GenresListCmd struct {
	Page   int    `help:"Page number" default:"1"`
	Limit  int    `help:"Genres per page" default:"20"`
	Search string `help:"Search genre names"`
	Order  string `help:"Sort by name" enum:"asc,desc" default:"asc"`
}

func (c *GenresListCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	page, err := a.client.ListGenres(ctx, client.GenreQuery{
		Page:        c.Page,
		Limit:       c.Limit,
		Search:      c.Search,
		OrderByName: client.Order(c.Order),
	})
	if err != nil {
		return apiError("list genres", err)
	}

	if len(page.Items) == 0 {
		fmt.Fprintln(a.out, "No genres found.")
		return nil
	}

	fmt.Fprintf(a.out, "%-36s %-30s\n", "ID", "Name")
	fmt.Fprintln(a.out, strings.Repeat("─", 67))
	for _, g := range page.Items {
		fmt.Fprintf(a.out, "%-36s %-30s\n", g.ID, truncate(g.Name, 30))
	}

	printPage(a.out, page.Meta, len(page.Items))

	return nil
}

type GenresShowCmd struct {
	ID string `arg:"" help:"Genre id"`
}

func (c *GenresShowCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	g, err := a.client.GetGenre(ctx, c.ID)
	if err != nil {
		return apiError("get genre", err)
	}

	fmt.Fprintf(a.out, "%s (id %s)\n", g.Name, g.ID)
	if g.CreatedAt != "" {
		fmt.Fprintf(a.out, "  Created: %s\n", g.CreatedAt)
	}
	if g.UpdatedAt != "" {
		fmt.Fprintf(a.out, "  Updated: %s\n", g.UpdatedAt)
	}

	return nil
}

type GenresAddCmd struct {
	Name string `arg:"" help:"Genre name"`
}

func (c *GenresAddCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	g, err := a.client.CreateGenre(ctx, c.Name)
	if err != nil {
		return apiError("add genre", err)
	}

	fmt.Fprintf(a.out, "Added genre %s (id %s)\n", g.Name, g.ID)

	return nil
}

type GenresUpdateCmd struct {
	ID   string `arg:"" help:"Genre id"`
	Name string `arg:"" help:"New name"`
}

func (c *GenresUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	if _, err := a.client.UpdateGenre(ctx, c.ID, c.Name); err != nil {
		return apiError("update genre", err)
	}

	fmt.Fprintf(a.out, "Renamed genre %s to %s\n", c.ID, c.Name)

	return nil
}

type GenresDeleteCmd struct {
	ID string `arg:"" help:"Genre id"`
}

func (c *GenresDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	if err := a.client.DeleteGenre(ctx, c.ID); err != nil {
		return apiError("delete genre", err)
	}

	fmt.Fprintf(a.out, "Deleted genre %s\n", c.ID)

	return nil
}
