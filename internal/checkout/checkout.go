// Package checkout turns the cart into a server side transaction.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/storefront/internal/cart"
	"github.com/wolfeidau/storefront/internal/client"
	"github.com/wolfeidau/storefront/internal/session"
	"github.com/wolfeidau/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("cart has a line with an invalid quantity")
)

// TransactionCreator submits a purchase. Satisfied by *client.Client.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, req client.CreateTransactionRequest) (client.TransactionCreated, error)
}

// Receipt is what the server recorded for a purchase.
type Receipt struct {
	TransactionID string
	TotalQuantity int
	TotalPrice    float64
}

// Submit sends the cart as a transaction for the signed in user and clears
// the cart once the server accepts it. On any failure the cart is untouched.
func Submit(ctx context.Context, api TransactionCreator, c *cart.Manager, s *session.Manager) (Receipt, error) {
	if err := s.Require(); err != nil {
		return Receipt{}, err
	}

	lines := c.Lines()
	if len(lines) == 0 {
		return Receipt{}, ErrEmptyCart
	}
	for _, l := range lines {
		if l.Quantity < 1 || l.Quantity > l.StockQuantity {
			return Receipt{}, fmt.Errorf("%w: %s has %d of %d", ErrInvalidQuantity, l.BookID, l.Quantity, l.StockQuantity)
		}
	}

	req := client.CreateTransactionRequest{
		UserID: s.UserID(),
		Items:  c.Items(),
	}

	created, err := api.CreateTransaction(ctx, req)
	if err != nil {
		record(ctx, "failed")
		return Receipt{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	record(ctx, "ok")

	if err := c.Clear(); err != nil {
		log.Warn().Err(err).Msg("transaction created but cart could not be cleared")
	}

	log.Info().
		Str("transaction", created.TransactionID).
		Int("quantity", created.TotalQuantity).
		Float64("total", created.TotalPrice).
		Msg("checkout complete")

	return Receipt{
		TransactionID: created.TransactionID,
		TotalQuantity: created.TotalQuantity,
		TotalPrice:    created.TotalPrice,
	}, nil
}

func record(ctx context.Context, outcome string) {
	telemetry.GetMetrics().CheckoutTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
