package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/storefront/internal/client"
	"github.com/wolfeidau/storefront/internal/storage"
	"github.com/wolfeidau/storefront/internal/tokenstore"
)

type recordingNavigator struct {
	reasons []string
}

func (n *recordingNavigator) ToLogin(reason string) {
	n.reasons = append(n.reasons, reason)
}

type fakeAPI struct {
	server   *httptest.Server
	requests atomic.Int32
	meStatus int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	api := &fakeAPI{meStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if api.meStatus != http.StatusOK || r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"invalid token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":{"id":"42","username":"ab","email":"a@b.com"}}`))
	})
	mux.HandleFunc("GET /transactions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"token expired"}`))
	})

	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.requests.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(api.server.Close)

	return api
}

type harness struct {
	api    *fakeAPI
	tokens *tokenstore.Store
	client *client.Client
	nav    *recordingNavigator
	mgr    *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	api := newFakeAPI(t)
	tokens := tokenstore.New(storage.NewMemoryStorage())
	c := client.New(client.Config{BaseURL: api.server.URL}, tokens)
	nav := &recordingNavigator{}

	mgr := New(tokens, c, nav)
	mgr.Attach(c)

	return &harness{api: api, tokens: tokens, client: c, nav: nav, mgr: mgr}
}

func TestManager_StartsInitializing(t *testing.T) {
	h := newHarness(t)

	assert.True(t, h.mgr.IsInitializing())
	assert.False(t, h.mgr.IsAuthenticated())
	assert.ErrorIs(t, h.mgr.Require(), ErrInitializing)
}

func TestManager_Init(t *testing.T) {
	t.Run("no stored token goes straight to unauthenticated without network calls", func(t *testing.T) {
		h := newHarness(t)

		h.mgr.Init(context.Background())

		assert.Equal(t, StateUnauthenticated, h.mgr.State())
		assert.False(t, h.mgr.IsInitializing())
		assert.Equal(t, int32(0), h.api.requests.Load())
		assert.ErrorIs(t, h.mgr.Require(), ErrNotAuthenticated)
		assert.Empty(t, h.nav.reasons)
	})

	t.Run("valid stored token adopts server identity", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.tokens.Save("good-token", "stale@b.com", ""))

		h.mgr.Init(context.Background())

		assert.Equal(t, StateAuthenticated, h.mgr.State())
		assert.Equal(t, "a@b.com", h.mgr.UserEmail())
		assert.Equal(t, "42", h.mgr.UserID())
		assert.Equal(t, "good-token", h.mgr.Token())
		assert.NoError(t, h.mgr.Require())
		assert.Equal(t, int32(1), h.api.requests.Load())

		// storage re-synced with the server
		assert.Equal(t, "a@b.com", h.tokens.Email())
		assert.Equal(t, "42", h.tokens.UserID())
	})

	t.Run("rejected stored token ends unauthenticated with credential removed", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.tokens.Save("expired-token", "a@b.com", "42"))

		h.mgr.Init(context.Background())

		assert.Equal(t, StateUnauthenticated, h.mgr.State())
		assert.Empty(t, h.mgr.UserEmail())
		assert.Empty(t, h.mgr.UserID())
		assert.Empty(t, h.tokens.Token())
		assert.Empty(t, h.tokens.Email())
		assert.Empty(t, h.tokens.UserID())
		assert.Equal(t, int32(1), h.api.requests.Load())
	})

	t.Run("rejected token without a gateway subscription still wipes", func(t *testing.T) {
		api := newFakeAPI(t)
		tokens := tokenstore.New(storage.NewMemoryStorage())
		require.NoError(t, tokens.Save("expired-token", "a@b.com", "42"))

		mgr := New(tokens, client.New(client.Config{BaseURL: api.server.URL}, tokens), nil)
		mgr.Init(context.Background())

		assert.Equal(t, StateUnauthenticated, mgr.State())
		assert.Empty(t, tokens.Token())
	})

	t.Run("runs once", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.tokens.Save("good-token", "a@b.com", "42"))

		h.mgr.Init(context.Background())
		h.mgr.Init(context.Background())

		assert.Equal(t, int32(1), h.api.requests.Load())
	})

	t.Run("canceled verification keeps the credential", func(t *testing.T) {
		tokens := tokenstore.New(storage.NewMemoryStorage())
		require.NoError(t, tokens.Save("good-token", "a@b.com", "42"))

		ctx, cancel := context.WithCancel(context.Background())
		verifier := verifierFunc(func(ctx context.Context) (client.User, error) {
			cancel()
			return client.User{}, ctx.Err()
		})

		mgr := New(tokens, verifier, nil)
		mgr.Init(ctx)

		assert.Equal(t, StateUnauthenticated, mgr.State())
		assert.Equal(t, "good-token", tokens.Token())
	})

	t.Run("malformed identity response is a failure", func(t *testing.T) {
		tokens := tokenstore.New(storage.NewMemoryStorage())
		require.NoError(t, tokens.Save("tok", "a@b.com", "42"))

		verifier := verifierFunc(func(ctx context.Context) (client.User, error) {
			return client.User{}, &client.Error{Kind: client.ErrDecode, Message: "bad body"}
		})

		mgr := New(tokens, verifier, nil)
		mgr.Init(context.Background())

		assert.Equal(t, StateUnauthenticated, mgr.State())
		assert.Empty(t, tokens.Token())
	})
}

type verifierFunc func(ctx context.Context) (client.User, error)

func (f verifierFunc) Me(ctx context.Context) (client.User, error) { return f(ctx) }

func TestManager_Login(t *testing.T) {
	h := newHarness(t)
	h.mgr.Init(context.Background())

	require.NoError(t, h.mgr.Login("tok", "a@b.com", "42"))

	assert.True(t, h.mgr.IsAuthenticated())
	assert.Equal(t, "a@b.com", h.mgr.UserEmail())
	assert.Equal(t, "42", h.mgr.UserID())
	assert.Equal(t, "tok", h.tokens.Token())
	assert.Equal(t, int32(0), h.api.requests.Load())
}

func TestManager_LoginBeforeInitSettlesSession(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.mgr.Login("tok", "a@b.com", "42"))
	h.mgr.Init(context.Background())

	assert.True(t, h.mgr.IsAuthenticated())
	assert.Equal(t, int32(0), h.api.requests.Load())
}

// savingHook runs onSave before every credential write.
type savingHook struct {
	Store
	onSave func(token string)
}

func (h *savingHook) Save(token, email, userID string) error {
	h.onSave(token)
	return h.Store.Save(token, email, userID)
}

func TestManager_LoginDuringVerifiedSaveKeepsStorageInSync(t *testing.T) {
	tokens := tokenstore.New(storage.NewMemoryStorage())
	require.NoError(t, tokens.Save("old-token", "a@b.com", "42"))

	verifier := verifierFunc(func(ctx context.Context) (client.User, error) {
		return client.User{ID: "42", Email: "a@b.com"}, nil
	})

	var (
		mgr  *Manager
		once sync.Once
		wg   sync.WaitGroup
	)
	store := &savingHook{Store: tokens}
	store.onSave = func(token string) {
		if token != "old-token" {
			return
		}
		once.Do(func() {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, mgr.Login("new-token", "b@c.com", "7"))
			}()
			time.Sleep(20 * time.Millisecond)
		})
	}

	mgr = New(store, verifier, nil)
	mgr.Init(context.Background())
	wg.Wait()

	assert.Equal(t, "new-token", mgr.Token())
	assert.Equal(t, "7", mgr.UserID())
	assert.Equal(t, mgr.Token(), tokens.Token())
	assert.Equal(t, mgr.UserID(), tokens.UserID())
	assert.Equal(t, mgr.UserEmail(), tokens.Email())
}

func TestManager_Logout(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.mgr.Login("tok", "a@b.com", "42"))

	h.mgr.Logout()

	assert.Equal(t, StateUnauthenticated, h.mgr.State())
	assert.Empty(t, h.mgr.UserEmail())
	assert.Empty(t, h.mgr.UserID())
	assert.Empty(t, h.tokens.Token())
	assert.Equal(t, []string{"logged out"}, h.nav.reasons)
}

func TestManager_ForcedLogoutOnUnauthorizedResponse(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.tokens.Save("good-token", "a@b.com", "42"))
	h.mgr.Init(context.Background())
	require.True(t, h.mgr.IsAuthenticated())

	_, err := h.client.ListTransactions(context.Background(), client.TransactionQuery{})
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))

	assert.Equal(t, StateUnauthenticated, h.mgr.State())
	assert.Empty(t, h.tokens.Token())
	assert.Empty(t, h.tokens.Email())
	assert.Equal(t, []string{"session expired"}, h.nav.reasons)
}

func TestManager_ForcedLogoutWithoutCredential(t *testing.T) {
	h := newHarness(t)
	h.mgr.Init(context.Background())

	h.mgr.ForceLogout(context.Background())

	assert.Equal(t, StateUnauthenticated, h.mgr.State())
	assert.Equal(t, []string{"authentication required"}, h.nav.reasons)
}

func TestManager_LogoutAndForcedLogoutConverge(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.mgr.Login("tok", "a@b.com", "42"))

	h.mgr.ForceLogout(context.Background())
	h.mgr.Logout()
	h.mgr.ForceLogout(context.Background())

	assert.Equal(t, StateUnauthenticated, h.mgr.State())
	assert.Empty(t, h.tokens.Token())
	assert.Equal(t, Snapshot{State: StateUnauthenticated}, h.mgr.Snapshot())
}

func TestManager_OnChange(t *testing.T) {
	h := newHarness(t)

	var seen []State
	h.mgr.OnChange(func(s Snapshot) {
		seen = append(seen, s.State)
		if s.IsAuthenticated() {
			assert.NotEmpty(t, s.UserEmail)
		} else {
			assert.Empty(t, s.UserEmail)
		}
	})

	h.mgr.Init(context.Background())
	require.NoError(t, h.mgr.Login("tok", "a@b.com", "42"))
	h.mgr.Logout()

	assert.Equal(t, []State{StateUnauthenticated, StateAuthenticated, StateUnauthenticated}, seen)
}

type failingStore struct{}

func (failingStore) Save(string, string, string) error { return errors.New("read only") }
func (failingStore) Remove() error                     { return errors.New("read only") }
func (failingStore) Token() string                     { return "" }

func TestManager_LoginPersistFailure(t *testing.T) {
	mgr := New(failingStore{}, nil, nil)

	err := mgr.Login("tok", "a@b.com", "42")
	require.Error(t, err)
	assert.False(t, mgr.IsAuthenticated())

	// sign out still converges even if storage is unwritable
	mgr.Logout()
	assert.Equal(t, StateUnauthenticated, mgr.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
	assert.Equal(t, "unknown", State(99).String())
}
