// Package cart keeps the client side shopping cart.
//
// The cart exists only on this client until checkout: the server sees the
// final (book, quantity) pairs and nothing else. Every mutation is written
// through to storage before it returns.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/storefront/internal/client"
	"github.com/wolfeidau/storefront/internal/storage"
	"github.com/wolfeidau/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StorageKey is where the serialized lines live.
const StorageKey = "shopping_cart"

// Book is what is known about a book when it is added. Price and stock are
// a snapshot and are not re-checked against the server between adds.
type Book struct {
	BookID        string  `json:"id"`
	Title         string  `json:"title"`
	Writer        string  `json:"writer"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
}

// BookFrom snapshots an API book.
func BookFrom(b client.Book) Book {
	return Book{
		BookID:        b.ID,
		Title:         b.Title,
		Writer:        b.Writer,
		Price:         b.Price,
		StockQuantity: b.StockQuantity,
	}
}

// Line is one book in the cart. 1 <= Quantity <= StockQuantity.
type Line struct {
	Book
	Quantity int `json:"quantity"`
}

// Subtotal is Price * Quantity.
func (l Line) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

// Manager owns the cart lines.
type Manager struct {
	storage storage.Storage

	mu    sync.Mutex
	lines []Line
}

// Load restores the cart from s. A missing or unreadable snapshot yields an
// empty cart.
func Load(s storage.Storage) *Manager {
	m := &Manager{storage: s, lines: []Line{}}

	raw, ok, err := s.Get(StorageKey)
	if err != nil {
		log.Debug().Err(err).Msg("failed to read cart, starting empty")
		return m
	}
	if !ok || raw == "" {
		return m
	}

	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		log.Debug().Err(err).Msg("failed to parse cart, starting empty")
		return m
	}
	if lines != nil {
		m.lines = lines
	}

	log.Debug().Int("lines", len(m.lines)).Msg("cart loaded")

	return m
}

// Add puts one more copy of book in the cart, capped at its stock. A book
// without stock is not added.
func (m *Manager) Add(book Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.indexLocked(book.BookID); i >= 0 {
		m.setQuantityLocked(i, m.lines[i].Quantity+1)
	} else if book.StockQuantity > 0 {
		m.lines = append(m.lines, Line{Book: book, Quantity: 1})
	} else {
		log.Debug().Str("book", book.BookID).Msg("book out of stock, not added")
	}

	return m.persistLocked("add")
}

// Remove drops the line for bookID if there is one.
func (m *Manager) Remove(bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(bookID)

	return m.persistLocked("remove")
}

// UpdateQuantity sets the quantity of bookID, capped at its stock. A
// quantity of zero or less removes the line. Unknown ids are ignored.
func (m *Manager) UpdateQuantity(bookID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if quantity <= 0 {
		m.removeLocked(bookID)
		return m.persistLocked("remove")
	}

	if i := m.indexLocked(bookID); i >= 0 {
		m.setQuantityLocked(i, quantity)
	}

	return m.persistLocked("update")
}

// setQuantityLocked caps quantity at the line's stock and drops the line
// when nothing is left to buy.
func (m *Manager) setQuantityLocked(i, quantity int) {
	quantity = min(quantity, m.lines[i].StockQuantity)
	if quantity < 1 {
		m.lines = append(m.lines[:i], m.lines[i+1:]...)
		return
	}
	m.lines[i].Quantity = quantity
}

// Clear empties the cart.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lines = []Line{}

	return m.persistLocked("clear")
}

func (m *Manager) IsInCart(bookID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexLocked(bookID) >= 0
}

// Line returns the line for bookID.
func (m *Manager) Line(bookID string) (Line, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.indexLocked(bookID); i >= 0 {
		return m.lines[i], true
	}
	return Line{}, false
}

// Lines returns a copy of the lines in insertion order.
func (m *Manager) Lines() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Line, len(m.lines))
	copy(out, m.lines)
	return out
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines)
}

// Count is the sum of all quantities.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, l := range m.lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice is the sum of price * quantity over all lines.
func (m *Manager) TotalPrice() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0.0
	for _, l := range m.lines {
		total += l.Subtotal()
	}
	return total
}

// Items returns the (book, quantity) pairs to submit at checkout.
func (m *Manager) Items() []client.TransactionItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]client.TransactionItem, 0, len(m.lines))
	for _, l := range m.lines {
		items = append(items, client.TransactionItem{BookID: l.BookID, Quantity: l.Quantity})
	}
	return items
}

func (m *Manager) indexLocked(bookID string) int {
	for i, l := range m.lines {
		if l.BookID == bookID {
			return i
		}
	}
	return -1
}

func (m *Manager) removeLocked(bookID string) {
	if i := m.indexLocked(bookID); i >= 0 {
		m.lines = append(m.lines[:i], m.lines[i+1:]...)
	}
}

// persistLocked writes the full collection. The in-memory state is kept even
// when the write fails so reads stay consistent with what the caller did.
func (m *Manager) persistLocked(op string) error {
	telemetry.GetMetrics().CartMutationsTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("op", op)))

	data, err := json.Marshal(m.lines)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}

	if err := m.storage.Set(StorageKey, string(data)); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}

	return nil
}
