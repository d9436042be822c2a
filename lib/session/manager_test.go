// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/discord-mcp/lib/clock"
	"github.com/bureau-foundation/discord-mcp/lib/discord"
	"github.com/bureau-foundation/discord-mcp/lib/discord/discordtest"
	"github.com/bureau-foundation/discord-mcp/lib/testutil"
)

var (
	alice = discord.Identity{UserID: "1001", Username: "alice-bot", Tag: "alice-bot#0001", ApplicationID: "1001"}
	bob   = discord.Identity{UserID: "1002", Username: "bob-bot", Tag: "bob-bot#0002", ApplicationID: "1002"}
)

type harness struct {
	connector *discordtest.Connector
	clock     *clock.FakeClock
	manager   *Manager

	mu          sync.Mutex
	transitions []Transition
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		connector: discordtest.NewConnector(),
		clock:     clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	h.connector.AddAccount("token-alice", alice)
	h.connector.AddAccount("token-bob", bob)

	manager, err := NewManager(Config{
		Connector: h.connector,
		Clock:     h.clock,
		Observer: func(transition Transition) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.transitions = append(h.transitions, transition)
		},
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	h.manager = manager
	t.Cleanup(func() { manager.Close() })
	return h
}

func (h *harness) states() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	states := make([]State, 0, len(h.transitions))
	for _, transition := range h.transitions {
		states = append(states, transition.To)
	}
	return states
}

func (h *harness) login(t *testing.T, token string) discord.Identity {
	t.Helper()
	identity, err := h.manager.Login(context.Background(), []byte(token))
	if err != nil {
		t.Fatalf("Login(%s): %v", token, err)
	}
	return identity
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewManagerRequiresConnector(t *testing.T) {
	if _, err := NewManager(Config{}); err == nil {
		t.Fatal("NewManager without Connector should fail")
	}
}

func TestEnsureReadyWithoutCredential(t *testing.T) {
	h := newHarness(t)

	lease, err := h.manager.EnsureReady(context.Background())
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("EnsureReady error = %v, want ErrNoCredential", err)
	}
	if lease != nil {
		t.Fatal("EnsureReady returned a lease without a session")
	}
	if h.connector.Connects() != 0 {
		t.Errorf("Connects = %d, want 0", h.connector.Connects())
	}
	if h.manager.State() != Disconnected {
		t.Errorf("State = %v, want disconnected", h.manager.State())
	}
}

func TestEnsureReadyConcurrentCallersShareOneLogin(t *testing.T) {
	h := newHarness(t)
	if err := h.manager.SetCredential([]byte("token-alice")); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	release := h.connector.Hold()

	const callers = 8
	type outcome struct {
		identity discord.Identity
		err      error
	}
	results := make(chan outcome, callers)
	for range callers {
		go func() {
			lease, err := h.manager.EnsureReady(context.Background())
			if err != nil {
				results <- outcome{err: err}
				return
			}
			defer lease.Release()
			results <- outcome{identity: lease.Identity()}
		}()
	}

	testutil.RequireReceive(t, h.connector.Started(), 5*time.Second, "waiting for login attempt")
	release()

	for range callers {
		result := testutil.RequireReceive(t, results, 5*time.Second, "waiting for EnsureReady")
		if result.err != nil {
			t.Fatalf("EnsureReady: %v", result.err)
		}
		if result.identity != alice {
			t.Errorf("identity = %+v, want %+v", result.identity, alice)
		}
	}
	if got := h.connector.Connects(); got != 1 {
		t.Errorf("Connects = %d, want exactly 1", got)
	}
}

func TestEnsureReadyOnReadySessionDoesNoUpstreamIO(t *testing.T) {
	h := newHarness(t)
	h.login(t, "token-alice")

	for range 3 {
		lease, err := h.manager.EnsureReady(context.Background())
		if err != nil {
			t.Fatalf("EnsureReady: %v", err)
		}
		if lease.Identity() != alice {
			t.Errorf("identity = %+v, want %+v", lease.Identity(), alice)
		}
		lease.Release()
	}

	if got := h.connector.Connects(); got != 1 {
		t.Errorf("Connects = %d, want 1", got)
	}
	if calls := h.connector.World().Calls(); len(calls) != 0 {
		t.Errorf("EnsureReady made upstream calls: %v", calls)
	}
}

func TestLoginSwapPassesThroughDisconnected(t *testing.T) {
	h := newHarness(t)

	if identity := h.login(t, "token-alice"); identity != alice {
		t.Fatalf("first login identity = %+v", identity)
	}
	first := h.connector.LastConn()

	if identity := h.login(t, "token-bob"); identity != bob {
		t.Fatalf("second login identity = %+v", identity)
	}

	want := []State{Connecting, Ready, Disconnected, Connecting, Ready}
	if got := h.states(); !equalStates(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}
	if !first.Closed() {
		t.Error("old session was not closed before the swap")
	}
	identity, ok := h.manager.Identity()
	if !ok || identity != bob {
		t.Errorf("Identity() = %+v, %v; want bob", identity, ok)
	}
}

func TestLoginSameCredentialIsNoop(t *testing.T) {
	h := newHarness(t)
	h.login(t, "token-alice")

	token := []byte("token-alice")
	identity, err := h.manager.Login(context.Background(), token)
	if err != nil || identity != alice {
		t.Fatalf("Login = %+v, %v", identity, err)
	}
	if h.connector.Connects() != 1 {
		t.Errorf("Connects = %d, want 1", h.connector.Connects())
	}
	for _, b := range token {
		if b != 0 {
			t.Fatal("Login did not zero the caller's token")
		}
	}
}

func TestLoginRejectedCredentialIsNotRetried(t *testing.T) {
	h := newHarness(t)

	_, err := h.manager.Login(context.Background(), []byte("token-unknown"))
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Login error = %v, want *AuthError", err)
	}
	if !errors.Is(err, discord.ErrAuthenticationFailed) {
		t.Errorf("AuthError does not unwrap to ErrAuthenticationFailed: %v", err)
	}
	if h.manager.State() != Faulted {
		t.Errorf("State = %v, want faulted", h.manager.State())
	}

	_, err = h.manager.EnsureReady(context.Background())
	if !errors.As(err, &authErr) {
		t.Fatalf("EnsureReady error = %v, want *AuthError", err)
	}
	if h.connector.Connects() != 1 {
		t.Errorf("Connects = %d, want 1 (rejected credential retried)", h.connector.Connects())
	}

	// A fresh credential clears the rejection. Faulted goes straight
	// to Connecting.
	h.login(t, "token-alice")
	want := []State{Connecting, Faulted, Connecting, Ready}
	if got := h.states(); !equalStates(got, want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}
}

func TestEnsureReadyTimeout(t *testing.T) {
	h := newHarness(t)
	if err := h.manager.SetCredential([]byte("token-alice")); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	release := h.connector.Hold()
	t.Cleanup(release)

	errs := make(chan error, 1)
	go func() {
		_, err := h.manager.EnsureReady(context.Background())
		errs <- err
	}()

	testutil.RequireReceive(t, h.connector.Started(), 5*time.Second, "waiting for login attempt")
	h.clock.WaitForTimers(1)
	h.clock.Advance(DefaultReadyTimeout)

	err := testutil.RequireReceive(t, errs, 5*time.Second, "waiting for EnsureReady to time out")
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("EnsureReady error = %v, want *TimeoutError", err)
	}
	if timeout.Timeout != DefaultReadyTimeout {
		t.Errorf("Timeout = %v, want %v", timeout.Timeout, DefaultReadyTimeout)
	}
	if h.manager.State() != Faulted {
		t.Errorf("State = %v, want faulted", h.manager.State())
	}

	// A timeout is transient: the next request tries again.
	release()
	lease, err := h.manager.EnsureReady(context.Background())
	if err != nil {
		t.Fatalf("EnsureReady after timeout: %v", err)
	}
	lease.Release()
	if h.connector.Connects() != 2 {
		t.Errorf("Connects = %d, want 2", h.connector.Connects())
	}
}

func TestEnsureReadyReconnectsStaleSession(t *testing.T) {
	h := newHarness(t)
	h.login(t, "token-alice")
	stale := h.connector.LastConn()
	stale.Drop()

	if h.manager.IsReady() {
		t.Fatal("IsReady() = true for a dropped connection")
	}

	lease, err := h.manager.EnsureReady(context.Background())
	if err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	defer lease.Release()

	if h.connector.Connects() != 2 {
		t.Errorf("Connects = %d, want 2", h.connector.Connects())
	}
	if !stale.Closed() {
		t.Error("stale connection was not closed")
	}
	if lease.Platform() == discord.Platform(stale) {
		t.Error("lease handed out the stale connection")
	}
}

func TestSwapWaitsForOutstandingLease(t *testing.T) {
	h := newHarness(t)
	h.login(t, "token-alice")

	lease, err := h.manager.EnsureReady(context.Background())
	if err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	leased := h.connector.LastConn()

	swapped := make(chan discord.Identity, 1)
	go func() {
		identity, err := h.manager.Login(context.Background(), []byte("token-bob"))
		if err != nil {
			t.Errorf("Login(bob): %v", err)
		}
		swapped <- identity
	}()

	testutil.RequireBlocked(t, swapped, 50*time.Millisecond, "swap completed while a lease was held")
	if leased.Closed() {
		t.Fatal("leased connection closed under an active handler")
	}
	if lease.Identity() != alice {
		t.Errorf("lease identity changed to %+v", lease.Identity())
	}

	lease.Release()
	lease.Release()

	if identity := testutil.RequireReceive(t, swapped, 5*time.Second, "waiting for swap"); identity != bob {
		t.Errorf("swapped identity = %+v, want bob", identity)
	}
	if !leased.Closed() {
		t.Error("old connection not closed after swap")
	}
}

func TestTeardownKeepsCredential(t *testing.T) {
	h := newHarness(t)
	h.login(t, "token-alice")
	conn := h.connector.LastConn()

	h.manager.Teardown()
	if h.manager.State() != Disconnected {
		t.Fatalf("State = %v, want disconnected", h.manager.State())
	}
	if !conn.Closed() {
		t.Error("Teardown did not close the connection")
	}
	if _, ok := h.manager.Identity(); ok {
		t.Error("Identity() reported an identity after teardown")
	}
	if !h.manager.HasCredential() {
		t.Fatal("Teardown dropped the credential")
	}

	lease, err := h.manager.EnsureReady(context.Background())
	if err != nil {
		t.Fatalf("EnsureReady after teardown: %v", err)
	}
	lease.Release()
}

func TestCloseDestroysCredential(t *testing.T) {
	h := newHarness(t)
	h.login(t, "token-alice")

	if err := h.manager.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := h.manager.EnsureReady(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Errorf("EnsureReady after Close = %v, want ErrNoCredential", err)
	}
}

func TestAuthenticateUsesStoredCredential(t *testing.T) {
	h := newHarness(t)

	if _, err := h.manager.Authenticate(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("Authenticate without credential = %v, want ErrNoCredential", err)
	}

	if err := h.manager.SetCredential([]byte("token-bob")); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	identity, err := h.manager.Authenticate(context.Background())
	if err != nil || identity != bob {
		t.Fatalf("Authenticate = %+v, %v", identity, err)
	}
	if got := h.connector.LastConn().Token(); got != "token-bob" {
		t.Errorf("connected with %q, want token-bob", got)
	}
}

func TestEnsureReadyCallerCancellation(t *testing.T) {
	h := newHarness(t)
	if err := h.manager.SetCredential([]byte("token-alice")); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	release := h.connector.Hold()
	t.Cleanup(release)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := h.manager.EnsureReady(ctx)
		errs <- err
	}()
	testutil.RequireReceive(t, h.connector.Started(), 5*time.Second, "waiting for login attempt")
	cancel()

	err := testutil.RequireReceive(t, errs, 5*time.Second, "waiting for cancelled EnsureReady")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("EnsureReady error = %v, want context.Canceled", err)
	}

	// The shared attempt outlives the cancelled caller.
	release()
	lease, err := h.manager.EnsureReady(context.Background())
	if err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	lease.Release()
	if h.connector.Connects() != 1 {
		t.Errorf("Connects = %d, want 1", h.connector.Connects())
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Ready:        "ready",
		Faulted:      "faulted",
		State(42):    "state(42)",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(state), got, want)
		}
	}
}

func TestReconnectReportsAttemptFinishedAfterObservation(t *testing.T) {
	h := newHarness(t)
	if err := h.manager.SetCredential([]byte("token-alice")); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	gatewayDown := errors.New("gateway unavailable")
	h.connector.FailConnect(gatewayDown)

	lease, observed := h.manager.tryLease()
	if lease != nil {
		t.Fatal("leased a session that never logged in")
	}

	// Another caller's attempt fails after this one looked.
	if _, err := h.manager.Authenticate(context.Background()); !errors.Is(err, gatewayDown) {
		t.Fatalf("Authenticate = %v, want %v", err, gatewayDown)
	}

	h.connector.FailConnect(nil)
	if err := h.manager.reconnect(context.Background(), observed); !errors.Is(err, gatewayDown) {
		t.Errorf("reconnect = %v, want the finished attempt's error", err)
	}
	if connects := h.connector.Connects(); connects != 1 {
		t.Errorf("Connects = %d, want 1", connects)
	}
}
