// Package session owns the authentication state of the running client.
//
// A Manager starts Initializing and is resolved exactly once by Init, which
// verifies any stored token against the identity endpoint. After that only
// Login, Logout and ForceLogout move it between Authenticated and
// Unauthenticated. ForceLogout is the subscriber for 401 responses observed by
// the API gateway, see Attach.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/storefront/internal/client"
	"github.com/wolfeidau/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Sentinel errors
var (
	// ErrInitializing is returned by Require while the stored token is being verified.
	ErrInitializing = errors.New("session is still being verified")

	// ErrNotAuthenticated is returned by Require when nobody is logged in.
	ErrNotAuthenticated = errors.New("not logged in")
)

// State of a session.
type State int

const (
	StateInitializing State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Store persists the credential. Satisfied by *tokenstore.Store.
type Store interface {
	Save(token, email, userID string) error
	Remove() error
	Token() string
}

// Verifier resolves the identity behind the stored token. Satisfied by *client.Client.
type Verifier interface {
	Me(ctx context.Context) (client.User, error)
}

// Navigator sends the user to the login view.
type Navigator interface {
	ToLogin(reason string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(reason string)

func (f NavigatorFunc) ToLogin(reason string) { f(reason) }

// Snapshot is a consistent copy of the session fields.
type Snapshot struct {
	State     State
	Token     string
	UserEmail string
	UserID    string
}

func (s Snapshot) IsAuthenticated() bool { return s.State == StateAuthenticated }

// Manager is the single source of truth for whether this client is authenticated.
type Manager struct {
	store    Store
	verifier Verifier
	nav      Navigator

	// initMu serializes Init, it is never held while state is mutated by
	// Login or a sign out.
	initMu sync.Mutex

	// writeMu pairs every credential write with the state change it
	// describes, so storage and state agree after concurrent calls.
	writeMu sync.Mutex

	mu        sync.RWMutex
	resolved  bool
	state     State
	token     string
	userEmail string
	userID    string
	observers []func(Snapshot)
}

// New returns a Manager in StateInitializing. Call Init to resolve it.
func New(store Store, verifier Verifier, nav Navigator) *Manager {
	if nav == nil {
		nav = NavigatorFunc(func(string) {})
	}
	return &Manager{
		store:    store,
		verifier: verifier,
		nav:      nav,
		state:    StateInitializing,
	}
}

// Attach subscribes the manager to 401 responses seen by gw.
func (m *Manager) Attach(gw interface {
	OnUnauthorized(client.UnauthorizedFunc)
}) {
	gw.OnUnauthorized(m.ForceLogout)
}

// OnChange registers fn to be called after every state transition.
func (m *Manager) OnChange(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Init verifies the stored token once. Later calls return immediately.
//
// Verification failures are not returned, they only decide the resulting
// state. If ctx is canceled before the verification finishes the result is
// discarded and the stored credential is kept for the next run. A Login or
// sign out that lands while verification is in flight wins over its result.
func (m *Manager) Init(ctx context.Context) {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if m.isResolved() {
		return
	}

	token := m.store.Token()
	if token == "" {
		log.Debug().Msg("no stored token")
		m.resolve(StateUnauthenticated, "", "", "")
		return
	}

	user, err := m.verifier.Me(ctx)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug().Err(err).Msg("session verification abandoned")
			m.resolve(StateUnauthenticated, "", "", "")
			return
		}

		log.Debug().Err(err).Msg("stored token rejected")

		m.writeMu.Lock()
		notify := func() {}
		if !m.isResolved() {
			if rmErr := m.store.Remove(); rmErr != nil {
				log.Warn().Err(rmErr).Msg("failed to remove rejected credential")
			}
			notify = m.apply(true, StateUnauthenticated, "", "", "")
		}
		m.writeMu.Unlock()
		notify()
		return
	}

	m.writeMu.Lock()
	notify := func() {}
	if !m.isResolved() {
		// keep storage consistent with what the server says
		if err := m.store.Save(token, user.Email, user.ID); err != nil {
			log.Warn().Err(err).Msg("failed to persist verified identity")
		}
		notify = m.apply(true, StateAuthenticated, token, user.Email, user.ID)
	}
	m.writeMu.Unlock()
	notify()
}

func (m *Manager) isResolved() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolved
}

// resolve applies the outcome of startup verification unless the session
// was already settled by Login or a sign out.
func (m *Manager) resolve(state State, token, email, userID string) {
	m.apply(true, state, token, email, userID)()
}

// Login records an already obtained token. It does not call the server.
func (m *Manager) Login(token, email, userID string) error {
	m.writeMu.Lock()
	if err := m.store.Save(token, email, userID); err != nil {
		m.writeMu.Unlock()
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	notify := m.apply(false, StateAuthenticated, token, email, userID)
	m.writeMu.Unlock()
	notify()

	log.Info().Str("user", email).Msg("logged in")

	return nil
}

// Logout wipes the credential and sends the user to the login view.
func (m *Manager) Logout() {
	m.signOut(func(bool) string { return "logged out" })
}

// ForceLogout handles a rejected request. It converges with Logout: both
// leave the session Unauthenticated with the credential removed.
func (m *Manager) ForceLogout(ctx context.Context) {
	log.Debug().Msg("request rejected as unauthenticated, forcing logout")
	m.signOut(func(held bool) string {
		if held {
			return "session expired"
		}
		return "authentication required"
	})
}

// signOut removes the credential and navigates with the reason for whether
// a credential was held at the time.
func (m *Manager) signOut(reason func(held bool) string) {
	m.writeMu.Lock()
	held := m.Token() != "" || m.store.Token() != ""
	if err := m.store.Remove(); err != nil {
		log.Warn().Err(err).Msg("failed to remove credential")
	}
	notify := m.apply(false, StateUnauthenticated, "", "", "")
	m.writeMu.Unlock()

	notify()
	m.nav.ToLogin(reason(held))
}

// apply updates the fields and returns the function that reports the
// transition to observers. Call it once writeMu is released.
func (m *Manager) apply(onlyUnresolved bool, state State, token, email, userID string) func() {
	m.mu.Lock()
	if onlyUnresolved && m.resolved {
		m.mu.Unlock()
		return func() {}
	}
	from := m.state
	m.resolved = true
	m.state = state
	m.token = token
	m.userEmail = email
	m.userID = userID
	snap := m.snapshotLocked()
	observers := make([]func(Snapshot), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	return func() {
		if from != state {
			log.Debug().Str("from", from.String()).Str("to", state.String()).Msg("session transition")
			telemetry.GetMetrics().SessionTransitionsTotal.Add(context.Background(), 1,
				metric.WithAttributes(attribute.String("to", state.String())))
		}

		for _, fn := range observers {
			fn(snap)
		}
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		State:     m.state,
		Token:     m.token,
		UserEmail: m.userEmail,
		UserID:    m.userID,
	}
}

// Snapshot returns all session fields read atomically.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) IsInitializing() bool {
	return m.State() == StateInitializing
}

func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// UserEmail is empty unless authenticated.
func (m *Manager) UserEmail() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userEmail
}

// UserID is empty unless authenticated.
func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userID
}

func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Require gates protected views. Initializing is reported separately from
// unauthenticated so callers can show a pending state instead of a redirect.
func (m *Manager) Require() error {
	switch m.State() {
	case StateAuthenticated:
		return nil
	case StateInitializing:
		return ErrInitializing
	default:
		return ErrNotAuthenticated
	}
}
