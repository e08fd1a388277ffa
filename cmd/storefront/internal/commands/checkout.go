package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfeidau/storefront/internal/checkout"
	"github.com/wolfeidau/storefront/internal/client"
)

// CheckoutCmd submits the cart as a transaction.
type CheckoutCmd struct {
	Yes bool `help:"Skip the order summary" short:"y"`
}

func (c *CheckoutCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	if !c.Yes {
		printCart(a, a.cart)
		fmt.Fprintln(a.out)
	}

	receipt, err := checkout.Submit(ctx, a.client, a.cart, a.session)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			return fmt.Errorf("%w, add books with `storefront cart add BOOK_ID`", err)
		}
		return apiError("check out", err)
	}

	fmt.Fprintf(a.out, "Order placed: %s\n", receipt.TransactionID)
	fmt.Fprintf(a.out, "  Items: %d\n", receipt.TotalQuantity)
	fmt.Fprintf(a.out, "  Total: %.2f\n", receipt.TotalPrice)

	return nil
}

type TransactionsCmd struct {
	List  TransactionsListCmd  `cmd:"" default:"withargs" help:"List transactions"`
	Show  TransactionsShowCmd  `cmd:"" help:"Show a transaction"`
	Stats TransactionsStatsCmd `cmd:"" help:"Show sales statistics"`
}

type TransactionsListCmd struct {
	Page   int    `help:"Page number" default:"1"`
	Limit  int    `help:"Transactions per page" default:"10"`
	Search string `help:"Search transaction ids"`
	Sort   string `help:"Sort by id, amount or price"`
	Order  string `help:"Sort direction" enum:"asc,desc" default:"desc"`
}

func (c *TransactionsListCmd) query() (client.TransactionQuery, error) {
	q := client.TransactionQuery{
		Page:   c.Page,
		Limit:  c.Limit,
		Search: c.Search,
	}

	switch c.Sort {
	case "":
	case "id":
		q.OrderByID = client.Order(c.Order)
	case "amount":
		q.OrderByAmount = client.Order(c.Order)
	case "price":
		q.OrderByPrice = client.Order(c.Order)
	default:
		return client.TransactionQuery{}, fmt.Errorf("unknown sort field %q", c.Sort)
	}

	return q, nil
}

func (c *TransactionsListCmd) Run(ctx context.Context, globals *Globals) error {
	q, err := c.query()
	if err != nil {
		return err
	}

	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	page, err := a.client.ListTransactions(ctx, q)
	if err != nil {
		return apiError("list transactions", err)
	}

	if len(page.Items) == 0 {
		fmt.Fprintln(a.out, "No transactions found.")
		return nil
	}

	fmt.Fprintf(a.out, "%-36s %8s %12s\n", "Transaction ID", "Items", "Total")
	fmt.Fprintln(a.out, strings.Repeat("─", 58))
	for _, tx := range page.Items {
		fmt.Fprintf(a.out, "%-36s %8d %12.2f\n", tx.ID, tx.TotalQuantity, tx.TotalPrice)
	}

	printPage(a.out, page.Meta, len(page.Items))

	return nil
}

type TransactionsShowCmd struct {
	ID string `arg:"" help:"Transaction id"`
}

func (c *TransactionsShowCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	tx, err := a.client.GetTransaction(ctx, c.ID)
	if err != nil {
		return apiError("get transaction", err)
	}

	fmt.Fprintf(a.out, "Transaction %s\n", tx.ID)
	fmt.Fprintf(a.out, "%-36s %-30s %4s %10s\n", "Book ID", "Title", "Qty", "Subtotal")
	fmt.Fprintln(a.out, strings.Repeat("─", 83))
	for _, item := range tx.Items {
		fmt.Fprintf(a.out, "%-36s %-30s %4d %10.2f\n", item.BookID, truncate(item.BookTitle, 30), item.Quantity, item.SubtotalPrice)
	}
	fmt.Fprintln(a.out, strings.Repeat("─", 83))
	fmt.Fprintf(a.out, "%d items, total %.2f\n", tx.TotalQuantity, tx.TotalPrice)

	return nil
}

type TransactionsStatsCmd struct{}

func (c *TransactionsStatsCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	stats, err := a.client.TransactionStatistics(ctx)
	if err != nil {
		return apiError("get statistics", err)
	}

	fmt.Fprintf(a.out, "Transactions:        %d\n", stats.TotalTransactions)
	fmt.Fprintf(a.out, "Average amount:      %.2f\n", stats.AverageTransactionAmount)
	fmt.Fprintf(a.out, "Best selling genre:  %s\n", stats.MostBookSalesGenre)
	fmt.Fprintf(a.out, "Worst selling genre: %s\n", stats.FewestBookSalesGenre)

	return nil
}
