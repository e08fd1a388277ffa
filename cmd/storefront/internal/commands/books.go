package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/wolfeidau/storefront/internal/client"
)

// BooksCmd groups the catalogue commands. Browsing is public, changes need a login.
type BooksCmd struct {
	List   BooksListCmd   `cmd:"" default:"withargs" help:"List books"`
	Show   BooksShowCmd   `cmd:"" help:"Show a book"`
	Add    BooksAddCmd    `cmd:"" help:"Add a book"`
	Update BooksUpdateCmd `cmd:"" help:"Update description, price or stock of a book"`
	Delete BooksDeleteCmd `cmd:"" help:"Delete a book"`
}

type BooksListCmd struct {
	Page      int    `help:"Page number" default:"1"`
	Limit     int    `help:"Books per page" default:"10"`
	Search    string `help:"Search title, writer or publisher"`
	Sort      string `help:"Sort by title or publish_date"`
	Order     string `help:"Sort direction" enum:"asc,desc" default:"asc"`
	Condition string `help:"Filter by condition (new, like_new, very_good, good, acceptable, poor)"`
	Genre     string `help:"Only books in this genre id"`
}

func (c *BooksListCmd) query() (client.BookQuery, error) {
	cond, err := client.ParseCondition(c.Condition)
	if err != nil {
		return client.BookQuery{}, err
	}

	q := client.BookQuery{
		Page:      c.Page,
		Limit:     c.Limit,
		Search:    c.Search,
		Condition: cond,
	}

	switch c.Sort {
	case "":
	case "title":
		q.OrderByTitle = client.Order(c.Order)
	case "publish_date":
		q.OrderByPublishDate = client.Order(c.Order)
	default:
		return client.BookQuery{}, fmt.Errorf("unknown sort field %q", c.Sort)
	}

	return q, nil
}

func (c *BooksListCmd) Run(ctx context.Context, globals *Globals) error {
	q, err := c.query()
	if err != nil {
		return err
	}

	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	var page client.Page[client.Book]
	if c.Genre != "" {
		page, err = a.client.ListBooksByGenre(ctx, c.Genre, q)
	} else {
		page, err = a.client.ListBooks(ctx, q)
	}
	if err != nil {
		return apiError("list books", err)
	}

	if len(page.Items) == 0 {
		fmt.Fprintln(a.out, "No books found.")
		return nil
	}

	fmt.Fprintf(a.out, "%-36s %-30s %-20s %10s %6s %-10s\n", "ID", "Title", "Writer", "Price", "Stock", "Condition")
	fmt.Fprintln(a.out, strings.Repeat("─", 117))

	for _, b := range page.Items {
		marker := ""
		if a.cart.IsInCart(b.ID) {
			marker = " (in cart)"
		}
		fmt.Fprintf(a.out, "%-36s %-30s %-20s %10.2f %6d %-10s%s\n",
			b.ID,
			truncate(b.Title, 30),
			truncate(b.Writer, 20),
			b.Price,
			b.StockQuantity,
			b.Condition,
			marker)
	}

	printPage(a.out, page.Meta, len(page.Items))

	return nil
}

func printPage(w io.Writer, meta client.Meta, n int) {
	fmt.Fprintf(w, "\nPage %d, %d shown\n", meta.Page, n)
	if meta.NextPage != nil {
		fmt.Fprintf(w, "Use --page=%d to see the next page\n", *meta.NextPage)
	}
}

type BooksShowCmd struct {
	ID string `arg:"" help:"Book id"`
}

func (c *BooksShowCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.client.GetBook(ctx, c.ID)
	if err != nil {
		return apiError("get book", err)
	}

	fmt.Fprintf(a.out, "%s\n", b.Title)
	fmt.Fprintf(a.out, "  Writer:     %s\n", b.Writer)
	fmt.Fprintf(a.out, "  Publisher:  %s\n", b.Publisher)
	if b.PublicationYear > 0 {
		fmt.Fprintf(a.out, "  Published:  %d\n", b.PublicationYear)
	}
	fmt.Fprintf(a.out, "  Genre:      %s\n", b.Genre)
	if b.ISBN != "" {
		fmt.Fprintf(a.out, "  ISBN:       %s\n", b.ISBN)
	}
	if b.Condition != "" {
		fmt.Fprintf(a.out, "  Condition:  %s\n", b.Condition)
	}
	fmt.Fprintf(a.out, "  Price:      %.2f\n", b.Price)
	fmt.Fprintf(a.out, "  Stock:      %d\n", b.StockQuantity)
	if line, ok := a.cart.Line(b.ID); ok {
		fmt.Fprintf(a.out, "  In cart:    %d\n", line.Quantity)
	}
	if b.Description != "" {
		fmt.Fprintf(a.out, "\n%s\n", b.Description)
	}

	return nil
}

type BooksAddCmd struct {
	Title       string  `help:"Title" required:""`
	Writer      string  `help:"Writer" required:""`
	Publisher   string  `help:"Publisher" required:""`
	Price       float64 `help:"Price" required:""`
	Stock       int     `help:"Stock quantity" required:""`
	Genre       string  `help:"Genre id" required:""`
	Year        int     `help:"Publication year"`
	Description string  `help:"Description"`
	ISBN        string  `help:"ISBN"`
	Condition   string  `help:"Condition (new, like_new, very_good, good, acceptable, poor)"`
}

func (c *BooksAddCmd) Run(ctx context.Context, globals *Globals) error {
	cond, err := client.ParseCondition(c.Condition)
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

	created, err := a.client.CreateBook(ctx, client.CreateBookRequest{
		Title:           c.Title,
		Writer:          c.Writer,
		Publisher:       c.Publisher,
		Description:     c.Description,
		PublicationYear: c.Year,
		Price:           c.Price,
		StockQuantity:   c.Stock,
		GenreID:         c.Genre,
		ISBN:            c.ISBN,
		Condition:       cond,
	})
	if err != nil {
		return apiError("add book", err)
	}

	fmt.Fprintf(a.out, "Added %s (id %s)\n", created.Title, created.ID)

	return nil
}

type BooksUpdateCmd struct {
	ID          string   `arg:"" help:"Book id"`
	Description *string  `help:"New description"`
	Price       *float64 `help:"New price"`
	Stock       *int     `help:"New stock quantity"`
}

func (c *BooksUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	if c.Description == nil && c.Price == nil && c.Stock == nil {
		return fmt.Errorf("nothing to update, pass --description, --price or --stock")
	}

	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	_, err = a.client.UpdateBook(ctx, c.ID, client.UpdateBookRequest{
		Description:   c.Description,
		Price:         c.Price,
		StockQuantity: c.Stock,
	})
	if err != nil {
		return apiError("update book", err)
	}

	fmt.Fprintf(a.out, "Updated %s\n", c.ID)

	return nil
}

type BooksDeleteCmd struct {
	ID string `arg:"" help:"Book id"`
}

func (c *BooksDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	if err := a.client.DeleteBook(ctx, c.ID); err != nil {
		return apiError("delete book", err)
	}

	// a deleted book can no longer be bought
	if err := a.cart.Remove(c.ID); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Deleted %s\n", c.ID)

	return nil
}
