package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// TransactionItem is one (book, quantity) pair of a purchase.
type TransactionItem struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

type TransactionItemDetail struct {
	BookID        string  `json:"book_id"`
	Quantity      int     `json:"quantity"`
	BookTitle     string  `json:"book_title,omitempty"`
	SubtotalPrice float64 `json:"subtotal_price,omitempty"`
}

type Transaction struct {
	ID            string  `json:"id"`
	TotalQuantity int     `json:"total_quantity"`
	TotalPrice    float64 `json:"total_price"`
}

type TransactionDetail struct {
	Transaction
	Items []TransactionItemDetail `json:"items"`
}

type CreateTransactionRequest struct {
	UserID string            `json:"user_id"`
	Items  []TransactionItem `json:"items"`
}

type TransactionCreated struct {
	TransactionID string  `json:"transaction_id"`
	TotalQuantity int     `json:"total_quantity"`
	TotalPrice    float64 `json:"total_price"`
}

type TransactionStatistics struct {
	TotalTransactions        int     `json:"total_transactions"`
	AverageTransactionAmount float64 `json:"average_transaction_amount"`
	FewestBookSalesGenre     string  `json:"fewest_book_sales_genre"`
	MostBookSalesGenre       string  `json:"most_book_sales_genre"`
}

// TransactionQuery filters and paginates GET /transactions. Search matches transaction ids.
type TransactionQuery struct {
	Page          int
	Limit         int
	Search        string
	OrderByID     Order
	OrderByAmount Order
	OrderByPrice  Order
}

func (q TransactionQuery) values() url.Values {
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
	if q.OrderByID != "" {
		v.Set("orderById", string(q.OrderByID))
	}
	if q.OrderByAmount != "" {
		v.Set("orderByAmount", string(q.OrderByAmount))
	}
	if q.OrderByPrice != "" {
		v.Set("orderByPrice", string(q.OrderByPrice))
	}
	return v
}

// CreateTransaction submits a purchase. POST /transactions
func (c *Client) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (TransactionCreated, error) {
	env, err := doJSON[TransactionCreated](ctx, c, http.MethodPost, "/transactions", nil, req)
	if err != nil {
		return TransactionCreated{}, err
	}
	return env.Data, nil
}

func (c *Client) ListTransactions(ctx context.Context, q TransactionQuery) (Page[Transaction], error) {
	env, err := doJSON[[]Transaction](ctx, c, http.MethodGet, "/transactions", q.values(), nil)
	if err != nil {
		return Page[Transaction]{}, err
	}
	return pageOf(env), nil
}

func (c *Client) GetTransaction(ctx context.Context, id string) (TransactionDetail, error) {
	env, err := doJSON[TransactionDetail](ctx, c, http.MethodGet, "/transactions/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return TransactionDetail{}, err
	}
	return env.Data, nil
}

func (c *Client) TransactionStatistics(ctx context.Context) (TransactionStatistics, error) {
	env, err := doJSON[TransactionStatistics](ctx, c, http.MethodGet, "/transactions/statistics", nil, nil)
	if err != nil {
		return TransactionStatistics{}, err
	}
	return env.Data, nil
}
