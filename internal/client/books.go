package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Order is a sort direction accepted by list endpoints.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Condition is the physical condition of a book.
type Condition string

const (
	ConditionNew        Condition = "NEW"
	ConditionLikeNew    Condition = "LIKE_NEW"
	ConditionVeryGood   Condition = "VERY_GOOD"
	ConditionGood       Condition = "GOOD"
	ConditionAcceptable Condition = "ACCEPTABLE"
	ConditionPoor       Condition = "POOR"
)

// Conditions lists every condition in display order.
var Conditions = []Condition{
	ConditionNew, ConditionLikeNew, ConditionVeryGood, ConditionGood, ConditionAcceptable, ConditionPoor,
}

// ParseCondition accepts a condition in any case, "" means unset.
func ParseCondition(s string) (Condition, error) {
	if s == "" {
		return "", nil
	}
	c := Condition(strings.ToUpper(strings.ReplaceAll(s, "-", "_")))
	for _, known := range Conditions {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown condition %q", s)
}

type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Writer          string    `json:"writer"`
	Publisher       string    `json:"publisher"`
	Description     string    `json:"description,omitempty"`
	PublicationYear int       `json:"publication_year,omitempty"`
	Price           float64   `json:"price"`
	StockQuantity   int       `json:"stock_quantity"`
	Genre           string    `json:"genre"`
	ISBN            string    `json:"isbn,omitempty"`
	Condition       Condition `json:"condition,omitempty"`
}

// BookQuery filters and paginates GET /books.
type BookQuery struct {
	Page               int
	Limit              int
	Search             string
	OrderByTitle       Order
	OrderByPublishDate Order
	Condition          Condition
}

func (q BookQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.OrderByTitle != "" {
		v.Set("orderByTitle", string(q.OrderByTitle))
	}
	if q.OrderByPublishDate != "" {
		v.Set("orderByPublishDate", string(q.OrderByPublishDate))
	}
	if q.Condition != "" {
		v.Set("condition", string(q.Condition))
	}
	return v
}

type CreateBookRequest struct {
	Title           string    `json:"title"`
	Writer          string    `json:"writer"`
	Publisher       string    `json:"publisher"`
	Description     string    `json:"description,omitempty"`
	PublicationYear int       `json:"publication_year,omitempty"`
	Price           float64   `json:"price"`
	StockQuantity   int       `json:"stock_quantity"`
	GenreID         string    `json:"genre_id"`
	ISBN            string    `json:"isbn,omitempty"`
	Condition       Condition `json:"condition,omitempty"`
}

type BookCreated struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// UpdateBookRequest changes description, price and stock. Nil fields are left alone.
type UpdateBookRequest struct {
	Description   *string  `json:"description,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	StockQuantity *int     `json:"stock_quantity,omitempty"`
}

// ListBooks returns one page of books. GET /books
func (c *Client) ListBooks(ctx context.Context, q BookQuery) (Page[Book], error) {
	env, err := doJSON[[]Book](ctx, c, http.MethodGet, "/books", q.values(), nil)
	if err != nil {
		return Page[Book]{}, err
	}
	return pageOf(env), nil
}

// ListBooksByGenre returns one page of books in a genre. GET /books/genre/:id
func (c *Client) ListBooksByGenre(ctx context.Context, genreID string, q BookQuery) (Page[Book], error) {
	env, err := doJSON[[]Book](ctx, c, http.MethodGet, "/books/genre/"+url.PathEscape(genreID), q.values(), nil)
	if err != nil {
		return Page[Book]{}, err
	}
	return pageOf(env), nil
}

// GetBook returns a book. GET /books/:id
func (c *Client) GetBook(ctx context.Context, id string) (Book, error) {
	env, err := doJSON[Book](ctx, c, http.MethodGet, "/books/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return Book{}, err
	}
	return env.Data, nil
}

// CreateBook adds a book. POST /books
func (c *Client) CreateBook(ctx context.Context, req CreateBookRequest) (BookCreated, error) {
	env, err := doJSON[BookCreated](ctx, c, http.MethodPost, "/books", nil, req)
	if err != nil {
		return BookCreated{}, err
	}
	return env.Data, nil
}

// UpdateBook changes a book. PATCH /books/:id
func (c *Client) UpdateBook(ctx context.Context, id string, req UpdateBookRequest) (Book, error) {
	env, err := doJSON[Book](ctx, c, http.MethodPatch, "/books/"+url.PathEscape(id), nil, req)
	if err != nil {
		return Book{}, err
	}
	return env.Data, nil
}

// DeleteBook soft deletes a book. DELETE /books/:id
func (c *Client) DeleteBook(ctx context.Context, id string) error {
	_, err := doJSON[struct{}](ctx, c, http.MethodDelete, "/books/"+url.PathEscape(id), nil, nil)
	return err
}
