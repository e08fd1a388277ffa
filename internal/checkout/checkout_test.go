package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/storefront/internal/cart"
	"github.com/wolfeidau/storefront/internal/client"
	"github.com/wolfeidau/storefront/internal/session"
	"github.com/wolfeidau/storefront/internal/storage"
	"github.com/wolfeidau/storefront/internal/tokenstore"
)

type env struct {
	client   *client.Client
	tokens   *tokenstore.Store
	cart     *cart.Manager
	session  *session.Manager
	received []client.CreateTransactionRequest
	auth     []string
}

func newEnv(t *testing.T, status int, body string) *env {
	t.Helper()

	e := &env{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transactions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req client.CreateTransactionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		e.received = append(e.received, req)
		e.auth = append(e.auth, r.Header.Get("Authorization"))

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	s := storage.NewMemoryStorage()
	e.tokens = tokenstore.New(s)
	e.client = client.New(client.Config{BaseURL: srv.URL}, e.tokens)
	e.session = session.New(e.tokens, e.client, nil)
	e.session.Attach(e.client)
	e.cart = cart.Load(s)

	return e
}

const createdBody = `{"success":true,"message":"created","data":{"transaction_id":"tx-1","total_quantity":3,"total_price":225.5}}`

func (e *env) fill(t *testing.T) {
	t.Helper()
	a := cart.Book{BookID: "A", Title: "Dune", Price: 100, StockQuantity: 5}
	require.NoError(t, e.cart.Add(a))
	require.NoError(t, e.cart.Add(a))
	require.NoError(t, e.cart.Add(cart.Book{BookID: "B", Title: "Emma", Price: 25.5, StockQuantity: 1}))
}

func TestSubmit(t *testing.T) {
	e := newEnv(t, http.StatusCreated, createdBody)
	require.NoError(t, e.session.Login("tok", "a@b.com", "42"))
	e.fill(t)

	receipt, err := Submit(context.Background(), e.client, e.cart, e.session)
	require.NoError(t, err)

	assert.Equal(t, Receipt{TransactionID: "tx-1", TotalQuantity: 3, TotalPrice: 225.5}, receipt)
	require.Len(t, e.received, 1)
	assert.Equal(t, client.CreateTransactionRequest{
		UserID: "42",
		Items: []client.TransactionItem{
			{BookID: "A", Quantity: 2},
			{BookID: "B", Quantity: 1},
		},
	}, e.received[0])
	assert.Equal(t, "Bearer tok", e.auth[0])
	assert.Equal(t, 0, e.cart.Len())
}

func TestSubmit_RequiresSession(t *testing.T) {
	t.Run("while initializing", func(t *testing.T) {
		e := newEnv(t, http.StatusCreated, createdBody)
		e.fill(t)

		_, err := Submit(context.Background(), e.client, e.cart, e.session)
		require.ErrorIs(t, err, session.ErrInitializing)
		assert.Empty(t, e.received)
	})

	t.Run("signed out", func(t *testing.T) {
		e := newEnv(t, http.StatusCreated, createdBody)
		e.session.Init(context.Background())
		e.fill(t)

		_, err := Submit(context.Background(), e.client, e.cart, e.session)
		require.ErrorIs(t, err, session.ErrNotAuthenticated)
		assert.Empty(t, e.received)
		assert.Equal(t, 2, e.cart.Len())
	})
}

func TestSubmit_EmptyCart(t *testing.T) {
	e := newEnv(t, http.StatusCreated, createdBody)
	require.NoError(t, e.session.Login("tok", "a@b.com", "42"))

	_, err := Submit(context.Background(), e.client, e.cart, e.session)
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, e.received)
}

func TestSubmit_InvalidQuantity(t *testing.T) {
	e := newEnv(t, http.StatusCreated, createdBody)
	require.NoError(t, e.session.Login("tok", "a@b.com", "42"))

	// a snapshot written by something else may violate the stock cap
	s := storage.NewMemoryStorage()
	require.NoError(t, s.Set(cart.StorageKey, `[{"id":"A","price":1,"stock_quantity":1,"quantity":4}]`))
	c := cart.Load(s)

	_, err := Submit(context.Background(), e.client, c, e.session)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Empty(t, e.received)
	assert.Equal(t, 1, c.Len())
}

func TestSubmit_ServerRejects(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind error
	}{
		{name: "validation", status: http.StatusBadRequest, body: `{"success":false,"message":"insufficient stock"}`, wantKind: client.ErrValidation},
		{name: "server error", status: http.StatusInternalServerError, body: `{"success":false,"message":"boom"}`, wantKind: client.ErrServer},
		{name: "success false", status: http.StatusOK, body: `{"success":false,"message":"nope"}`, wantKind: client.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, tt.status, tt.body)
			require.NoError(t, e.session.Login("tok", "a@b.com", "42"))
			e.fill(t)

			_, err := Submit(context.Background(), e.client, e.cart, e.session)
			require.ErrorIs(t, err, tt.wantKind)
			assert.Equal(t, 2, e.cart.Len())
			assert.True(t, e.session.IsAuthenticated())
		})
	}
}

func TestSubmit_UnauthorizedForcesLogout(t *testing.T) {
	e := newEnv(t, http.StatusUnauthorized, `{"success":false,"message":"token expired"}`)
	require.NoError(t, e.session.Login("tok", "a@b.com", "42"))
	e.fill(t)

	_, err := Submit(context.Background(), e.client, e.cart, e.session)
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))

	assert.False(t, e.session.IsAuthenticated())
	assert.Empty(t, e.tokens.Token())
	// the cart is not tied to the session
	assert.Equal(t, 2, e.cart.Len())
}
