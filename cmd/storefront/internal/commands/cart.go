package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfeidau/storefront/internal/cart"
)

// CartCmd manages the local cart. It works without a login, checkout does not.
type CartCmd struct {
	Show   CartShowCmd   `cmd:"" default:"1" help:"Show the cart"`
	Add    CartAddCmd    `cmd:"" help:"Add one copy of a book"`
	Remove CartRemoveCmd `cmd:"" help:"Remove a book"`
	Set    CartSetCmd    `cmd:"" help:"Set the quantity of a book, 0 removes it"`
	Clear  CartClearCmd  `cmd:"" help:"Empty the cart"`
}

type CartShowCmd struct{}

func (c *CartShowCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	printCart(a, a.cart)

	return nil
}

func printCart(a *app, m *cart.Manager) {
	lines := m.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(a.out, "Cart is empty.")
		return
	}

	fmt.Fprintf(a.out, "%-36s %-30s %10s %4s %10s\n", "Book ID", "Title", "Price", "Qty", "Subtotal")
	fmt.Fprintln(a.out, strings.Repeat("─", 94))
	for _, l := range lines {
		fmt.Fprintf(a.out, "%-36s %-30s %10.2f %4d %10.2f\n",
			l.BookID,
			truncate(l.Title, 30),
			l.Price,
			l.Quantity,
			l.Subtotal())
	}
	fmt.Fprintln(a.out, strings.Repeat("─", 94))
	fmt.Fprintf(a.out, "%d items, total %.2f\n", m.Count(), m.TotalPrice())
}

// CartAddCmd snapshots the book from the API and adds one copy.
type CartAddCmd struct {
	BookID string `arg:"" help:"Book id"`
}

func (c *CartAddCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.client.GetBook(ctx, c.BookID)
	if err != nil {
		return apiError("get book", err)
	}

	if b.StockQuantity <= 0 {
		return fmt.Errorf("%s is out of stock", b.Title)
	}

	before, _ := a.cart.Line(b.ID)
	if err := a.cart.Add(cart.BookFrom(b)); err != nil {
		return err
	}

	line, _ := a.cart.Line(b.ID)
	if line.Quantity == before.Quantity {
		fmt.Fprintf(a.out, "Only %d of %s in stock, cart already holds them all\n", b.StockQuantity, b.Title)
		return nil
	}

	fmt.Fprintf(a.out, "Added %s, %d in cart\n", b.Title, line.Quantity)

	return nil
}

type CartRemoveCmd struct {
	BookID string `arg:"" help:"Book id"`
}

func (c *CartRemoveCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cart.IsInCart(c.BookID) {
		return fmt.Errorf("%s is not in the cart", c.BookID)
	}

	if err := a.cart.Remove(c.BookID); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Removed %s\n", c.BookID)

	return nil
}

type CartSetCmd struct {
	BookID   string `arg:"" help:"Book id"`
	Quantity int    `arg:"" help:"New quantity"`
}

func (c *CartSetCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cart.IsInCart(c.BookID) {
		return fmt.Errorf("%s is not in the cart", c.BookID)
	}

	if err := a.cart.UpdateQuantity(c.BookID, c.Quantity); err != nil {
		return err
	}

	line, ok := a.cart.Line(c.BookID)
	if !ok {
		fmt.Fprintf(a.out, "Removed %s\n", c.BookID)
		return nil
	}

	if line.Quantity < c.Quantity {
		fmt.Fprintf(a.out, "Only %d in stock, quantity set to %d\n", line.StockQuantity, line.Quantity)
		return nil
	}

	fmt.Fprintf(a.out, "Quantity of %s set to %d\n", line.Title, line.Quantity)

	return nil
}

type CartClearCmd struct{}

func (c *CartClearCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cart.Clear(); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Cart cleared.")

	return nil
}
