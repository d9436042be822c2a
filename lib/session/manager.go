// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bureau-foundation/discord-mcp/lib/clock"
	"github.com/bureau-foundation/discord-mcp/lib/discord"
	"github.com/bureau-foundation/discord-mcp/lib/secret"
)

// DefaultReadyTimeout bounds the wait for a login to reach Ready.
const DefaultReadyTimeout = 30 * time.Second

// Config holds the collaborators of a Manager.
type Config struct {
	// Connector opens upstream sessions. Required.
	Connector discord.Connector

	// Clock measures the ready timeout. Nil uses the real clock.
	Clock clock.Clock

	// ReadyTimeout bounds each login attempt. Zero uses
	// DefaultReadyTimeout.
	ReadyTimeout time.Duration

	Logger *slog.Logger

	// Observer, when set, is called after every state change. It runs
	// while the transition lock is held and must not call back into
	// the Manager.
	Observer func(Transition)
}

// Manager owns the single upstream session shared by every request.
//
// Transitions (login, reconnect, teardown) are serialized by
// transitionMu, so at most one login attempt is in flight. A Lease
// holds leaseMu for reading; a transition that would close the
// current connection takes leaseMu for writing and so waits until
// every handler using that connection has returned.
//
// Lock order: transitionMu, then leaseMu, then mu.
type Manager struct {
	connector    discord.Connector
	clock        clock.Clock
	readyTimeout time.Duration
	logger       *slog.Logger
	observer     func(Transition)

	transitionMu sync.Mutex
	leaseMu      sync.RWMutex
	reconnects   singleflight.Group

	mu         sync.Mutex
	state      State
	credential *secret.Buffer
	rejected   *AuthError
	conn       discord.Conn
	identity   discord.Identity
	lastErr    error

	// attempts counts completed login attempts. A caller that saw the
	// session not ready compares it after acquiring the transition
	// lock to learn whether someone else already tried on its behalf.
	attempts uint64
}

// NewManager returns a Manager in the Disconnected state with no
// credential.
func NewManager(config Config) (*Manager, error) {
	if config.Connector == nil {
		return nil, errors.New("session: Connector is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = DefaultReadyTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Manager{
		connector:    config.Connector,
		clock:        config.Clock,
		readyTimeout: config.ReadyTimeout,
		logger:       config.Logger,
		observer:     config.Observer,
	}, nil
}

// SetCredential stores the credential used by Authenticate and by
// reconnect-on-demand without contacting the upstream. It does not
// disturb an existing session. The token slice is zeroed.
func (m *Manager) SetCredential(token []byte) error {
	buffer, err := secret.NewFromBytes(token)
	if err != nil {
		return fmt.Errorf("session: storing credential: %w", err)
	}

	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()
	m.replaceCredential(buffer)
	return nil
}

// HasCredential reports whether a credential is on file.
func (m *Manager) HasCredential() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credential != nil
}

// State returns the current lifecycle state. A Ready session whose
// connection has dropped still reports Ready until the next request
// notices and reconnects.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsReady reports whether a request could lease the session right
// now without upstream I/O.
func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readyLocked()
}

// Identity returns the authenticated account while Ready.
func (m *Manager) Identity() (discord.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.readyLocked() {
		return discord.Identity{}, false
	}
	return m.identity, true
}

// EnsureReady returns a Lease on the Ready session. A Ready session
// is leased immediately with no upstream I/O. Otherwise, with a
// credential on file, the session gets one reconnect attempt, shared
// by every caller that arrives while it runs, before EnsureReady gives
// up.
//
// Failures are ErrNoCredential, *AuthError, *TimeoutError, or the
// upstream's own connect error.
func (m *Manager) EnsureReady(ctx context.Context) (*Lease, error) {
	lease, observed := m.tryLease()
	if lease != nil {
		return lease, nil
	}

	// The shared attempt must not die with whichever caller started
	// it; the ready timeout bounds it instead.
	attemptCtx := context.WithoutCancel(ctx)
	results := m.reconnects.DoChan("reconnect", func() (any, error) {
		return nil, m.reconnect(attemptCtx, observed)
	})

	select {
	case result := <-results:
		if result.Err != nil {
			return nil, result.Err
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("session: waiting for reconnect: %w", ctx.Err())
	}

	if lease, _ := m.tryLease(); lease != nil {
		return lease, nil
	}
	return nil, m.notReadyError()
}

// Login authenticates with token and returns the resulting identity.
// The token slice is zeroed.
//
// If the session is Ready with the same credential, Login returns the
// current identity without upstream I/O. If it is Ready with a
// different credential, the existing session is torn down (after
// outstanding leases are released) before the new one is started.
func (m *Manager) Login(ctx context.Context, token []byte) (discord.Identity, error) {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	m.mu.Lock()
	same := m.credential != nil && m.credential.Equal(token)
	ready := m.readyLocked()
	identity := m.identity
	m.mu.Unlock()

	if same && ready {
		secret.Zero(token)
		return identity, nil
	}

	buffer, err := secret.NewFromBytes(token)
	if err != nil {
		return discord.Identity{}, fmt.Errorf("session: storing credential: %w", err)
	}

	m.disconnectLocked("credential swap", false)
	m.replaceCredential(buffer)
	return m.connectLocked(ctx)
}

// Authenticate logs in with the credential on file. Unlike
// reconnect-on-demand it retries a credential the upstream rejected
// before, since the caller asked for it explicitly.
func (m *Manager) Authenticate(ctx context.Context) (discord.Identity, error) {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	m.mu.Lock()
	ready := m.readyLocked()
	identity := m.identity
	hasCredential := m.credential != nil
	m.mu.Unlock()

	if ready {
		return identity, nil
	}
	if !hasCredential {
		return discord.Identity{}, ErrNoCredential
	}
	m.disconnectLocked("stale connection", false)
	return m.connectLocked(ctx)
}

// Teardown closes the session and returns to Disconnected, waiting
// for outstanding leases first. The credential stays on file.
func (m *Manager) Teardown() {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()
	m.disconnectLocked("teardown", true)
}

// Close tears the session down and destroys the stored credential.
func (m *Manager) Close() error {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()
	m.disconnectLocked("shutdown", true)
	m.replaceCredential(nil)
	return nil
}

// Lease pins one Ready connection for the duration of a handler.
// The connection is not torn down or swapped until Release.
type Lease struct {
	conn     discord.Conn
	identity discord.Identity
	once     sync.Once
	release  func()
}

// Platform returns the leased upstream.
func (l *Lease) Platform() discord.Platform { return l.conn }

// Identity returns the account the leased connection is logged in as.
func (l *Lease) Identity() discord.Identity { return l.identity }

// Release ends the lease. It is safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(l.release)
}

// tryLease leases the session if it is Ready. Otherwise it returns
// the attempt count read together with the readiness check, so an
// attempt that fails afterwards is one the caller has not seen.
func (m *Manager) tryLease() (*Lease, uint64) {
	m.leaseMu.RLock()
	m.mu.Lock()
	ready := m.readyLocked()
	conn, identity := m.conn, m.identity
	attempts := m.attempts
	m.mu.Unlock()

	if !ready {
		m.leaseMu.RUnlock()
		return nil, attempts
	}
	return &Lease{conn: conn, identity: identity, release: m.leaseMu.RUnlock}, attempts
}

// reconnect runs at most one login attempt with the stored
// credential. observed is the attempt count the caller saw before
// deciding to reconnect; if it has moved, an attempt finished while
// the caller waited and its outcome is reported instead of trying
// again.
func (m *Manager) reconnect(ctx context.Context, observed uint64) error {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	m.mu.Lock()
	ready := m.readyLocked()
	attempts, lastErr := m.attempts, m.lastErr
	hasCredential := m.credential != nil
	rejected := m.rejected
	m.mu.Unlock()

	switch {
	case ready:
		return nil
	case attempts != observed:
		return lastErr
	case !hasCredential:
		return ErrNoCredential
	case rejected != nil:
		return rejected
	}

	m.disconnectLocked("stale connection", false)
	m.logger.Info("reconnecting upstream session on demand")
	_, err := m.connectLocked(ctx)
	return err
}

// connectLocked performs one login attempt with the stored
// credential. Caller holds transitionMu; the session is not Ready.
func (m *Manager) connectLocked(ctx context.Context) (discord.Identity, error) {
	m.mu.Lock()
	token := m.credential.String()
	m.mu.Unlock()

	m.transition(Connecting, discord.Identity{}, nil)

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan connectResult, 1)
	go func() {
		conn, err := m.connector.Connect(attemptCtx, token)
		done <- connectResult{conn: conn, err: err}
	}()

	var result connectResult
	select {
	case result = <-done:
	case <-m.clock.After(m.readyTimeout):
		result.err = &TimeoutError{Timeout: m.readyTimeout}
		go discardLate(done)
	case <-ctx.Done():
		result.err = fmt.Errorf("session: login: %w", ctx.Err())
		go discardLate(done)
	}

	if result.err != nil {
		err := result.err
		var rejected *AuthError
		if errors.Is(err, discord.ErrAuthenticationFailed) {
			rejected = &AuthError{Err: err}
			err = rejected
		}
		m.mu.Lock()
		m.attempts++
		m.lastErr = err
		m.rejected = rejected
		m.mu.Unlock()
		m.transition(Faulted, discord.Identity{}, err)
		return discord.Identity{}, err
	}

	identity := result.conn.Identity()
	m.mu.Lock()
	m.attempts++
	m.lastErr = nil
	m.rejected = nil
	m.conn = result.conn
	m.identity = identity
	m.mu.Unlock()
	m.transition(Ready, identity, nil)
	return identity, nil
}

type connectResult struct {
	conn discord.Conn
	err  error
}

// discardLate closes a connection that finished opening after its
// attempt was abandoned.
func discardLate(done <-chan connectResult) {
	if late := <-done; late.conn != nil {
		late.conn.Close()
	}
}

// disconnectLocked closes the current connection, if any, once every
// lease on it is released. A Ready session moves to Disconnected;
// force moves any other state there as well. Caller holds
// transitionMu.
func (m *Manager) disconnectLocked(reason string, force bool) {
	m.leaseMu.Lock()
	m.mu.Lock()
	conn := m.conn
	from := m.state
	m.conn = nil
	m.identity = discord.Identity{}
	m.mu.Unlock()
	m.leaseMu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			m.logger.Warn("closing upstream session", "reason", reason, "error", err)
		}
	}
	if from == Ready || (force && from != Disconnected) {
		m.transition(Disconnected, discord.Identity{}, nil)
	}
}

// replaceCredential swaps the stored credential, destroying the old
// one. A nil buffer clears it. Caller holds transitionMu.
func (m *Manager) replaceCredential(buffer *secret.Buffer) {
	m.mu.Lock()
	old := m.credential
	m.credential = buffer
	m.rejected = nil
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

func (m *Manager) notReadyError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.credential == nil:
		return ErrNoCredential
	case m.lastErr != nil:
		return m.lastErr
	}
	return fmt.Errorf("session: not ready (state %s)", m.state)
}

func (m *Manager) readyLocked() bool {
	return m.state == Ready && m.conn != nil && m.conn.Alive()
}

func (m *Manager) transition(to State, identity discord.Identity, err error) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.mu.Unlock()

	if from == to {
		return
	}
	attrs := []any{"from", from.String(), "to", to.String()}
	switch {
	case to == Ready:
		attrs = append(attrs, "user", identity.Tag)
		m.logger.Info("session ready", attrs...)
	case err != nil:
		attrs = append(attrs, "error", err)
		m.logger.Warn("session faulted", attrs...)
	default:
		m.logger.Debug("session transition", attrs...)
	}
	if m.observer != nil {
		m.observer(Transition{From: from, To: to, Identity: identity, Err: err, At: m.clock.Now()})
	}
}
