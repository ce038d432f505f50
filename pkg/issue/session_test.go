package issue

import (
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"syreclabs.com/go/faker"

	"github.com/spotlight-events/spotlight-server/pkg/scan"
	"github.com/spotlight-events/spotlight-server/pkg/stor"
	"github.com/spotlight-events/spotlight-server/pkg/ticket"
)

// some global vars shared by all tests
var St stor.Store

func TestMain(m *testing.M) {

	// create / open an sqlite db in memory
	dsn := "sqlite3://file::memory:?cache=shared"
	var err error
	St, err = stor.Init(dsn)
	if err != nil {
		panic("Database setup failed")
	}

	code := m.Run()
	os.Exit(code)
}

// ---
// Utilities
// ---

// countingSigner wraps a key signer and counts sign calls; an optional
// delay widens the race window for coalescing tests
type countingSigner struct {
	*ticket.KeySigner
	calls    int32
	declines int32
	delay    time.Duration
}

func newCountingSigner(t *testing.T) *countingSigner {
	t.Helper()
	ks, err := ticket.NewKeySigner()
	if err != nil {
		t.Fatalf("Failed to generate a signing key: %v", err)
	}
	return &countingSigner{KeySigner: ks}
}

func (c *countingSigner) Sign(message string) (string, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if atomic.AddInt32(&c.declines, -1) >= 0 {
		return "", ticket.ErrSignatureDeclined
	}
	return c.KeySigner.Sign(message)
}

func newEvent(t *testing.T) *stor.Event {
	t.Helper()

	event := &stor.Event{
		UUID:      uuid.New().String(),
		Name:      faker.Company().Name(),
		Owner:     "0x0000000000000000000000000000000000000001",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := St.Event().Create(event); err != nil {
		t.Fatalf("Failed to create an event: %v", err)
	}
	return event
}

// ---
// Issuance tests
// ---

func TestEnsureTicketIdempotent(t *testing.T) {

	signer := newCountingSigner(t)
	session := NewSession(St, signer, signer.Address())
	event := newEvent(t)

	first, err := session.EnsureTicket(event.UUID)
	if err != nil {
		t.Fatalf("Failed to issue a ticket: %v", err)
	}
	second, err := session.EnsureTicket(event.UUID)
	if err != nil {
		t.Fatalf("Failed to re-ensure a ticket: %v", err)
	}
	if first.UUID != second.UUID {
		t.Fatal("EnsureTicket must return the same ticket for one (holder, event) pair")
	}

	// the sold counter moved once
	event2, err := St.Event().Get(event.UUID)
	if err != nil {
		t.Fatalf("Failed to get the event: %v", err)
	}
	if event2.Sold != 1 {
		t.Fatalf("Expected sold counter 1, got %d", event2.Sold)
	}
}

func TestIssueAgainstBadEvent(t *testing.T) {

	signer := newCountingSigner(t)
	session := NewSession(St, signer, signer.Address())

	if _, err := session.EnsureTicket(uuid.New().String()); err != ErrUnknownEvent {
		t.Fatalf("Expected ErrUnknownEvent, got %v", err)
	}

	expired := &stor.Event{
		UUID:      uuid.New().String(),
		Name:      faker.Company().Name(),
		Owner:     "0x0000000000000000000000000000000000000001",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := St.Event().Create(expired); err != nil {
		t.Fatalf("Failed to create an event: %v", err)
	}
	if _, err := session.EnsureTicket(expired.UUID); err != ErrEventExpired {
		t.Fatalf("Expected ErrEventExpired, got %v", err)
	}
}

func TestSignOncePerEvent(t *testing.T) {

	signer := newCountingSigner(t)
	session := NewSession(St, signer, signer.Address())
	event := newEvent(t)

	for i := 0; i < 5; i++ {
		if _, err := session.Credential(event.UUID); err != nil {
			t.Fatalf("Failed to build a credential: %v", err)
		}
	}
	if n := atomic.LoadInt32(&signer.calls); n != 1 {
		t.Fatalf("Expected one sign call for five credentials, got %d", n)
	}

	// a second event needs its own signature
	other := newEvent(t)
	if _, err := session.Credential(other.UUID); err != nil {
		t.Fatalf("Failed to build a credential: %v", err)
	}
	if n := atomic.LoadInt32(&signer.calls); n != 2 {
		t.Fatalf("Expected two sign calls for two events, got %d", n)
	}
}

func TestConcurrentSigningCoalesced(t *testing.T) {

	signer := newCountingSigner(t)
	signer.delay = 50 * time.Millisecond
	session := NewSession(St, signer, signer.Address())
	event := newEvent(t)

	// issue the ticket up front so the goroutines race on signing only
	if _, err := session.EnsureTicket(event.UUID); err != nil {
		t.Fatalf("Failed to issue a ticket: %v", err)
	}

	const holders = 10

	var wg sync.WaitGroup
	for i := 0; i < holders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := session.Credential(event.UUID); err != nil {
				t.Errorf("Concurrent credential failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&signer.calls); n != 1 {
		t.Fatalf("Expected one coalesced sign call, got %d", n)
	}
}

func TestDeclinedSignatureIsRetryable(t *testing.T) {

	signer := newCountingSigner(t)
	signer.declines = 1
	session := NewSession(St, signer, signer.Address())
	event := newEvent(t)

	// the first request is declined by the holder
	if _, err := session.Credential(event.UUID); err == nil {
		t.Fatal("A declined signature must surface an error")
	}

	// the session is not poisoned: the next request signs
	if _, err := session.Credential(event.UUID); err != nil {
		t.Fatalf("A retry after a decline must succeed: %v", err)
	}
	if n := atomic.LoadInt32(&signer.calls); n != 2 {
		t.Fatalf("Expected two sign calls, got %d", n)
	}
}

// TestCredentialRoundTrip issues a credential and verifies it at a gate
func TestCredentialRoundTrip(t *testing.T) {

	signer := newCountingSigner(t)
	session := NewSession(St, signer, signer.Address())
	event := newEvent(t)

	raw, err := session.Credential(event.UUID)
	if err != nil {
		t.Fatalf("Failed to build a credential: %v", err)
	}

	gate := scan.NewGate(St)
	res, err := gate.Verify(raw, event.UUID)
	if err != nil {
		t.Fatalf("Verification errored: %v", err)
	}
	if !res.Granted() {
		t.Fatalf("Expected granted, got %s (%s)", res.Verdict, res.Reason)
	}

	// a refreshed credential of a scanned ticket is already used
	raw, err = session.Credential(event.UUID)
	if err != nil {
		t.Fatalf("Failed to rebuild a credential: %v", err)
	}
	res, err = gate.Verify(raw, event.UUID)
	if err != nil {
		t.Fatalf("Verification errored: %v", err)
	}
	if res.Verdict != scan.ALREADY_USED {
		t.Fatalf("Expected already_used, got %s (%s)", res.Verdict, res.Reason)
	}
}
