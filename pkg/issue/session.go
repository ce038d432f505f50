// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// The issue package orchestrates ticket issuance for a holder: ticket
// creation, the sign-once signature cache and credential encoding.
package issue

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/spotlight-events/spotlight-server/pkg/stor"
	"github.com/spotlight-events/spotlight-server/pkg/ticket"
)

var (
	// ErrUnknownEvent is returned when issuing against a missing event.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrEventExpired is returned when issuing against a finished event.
	ErrEventExpired = errors.New("event expired")
)

// Session holds the in-memory issuance state of one holder: the
// signature cache keyed by event id and the in-flight sign calls.
// Nothing here survives the session; tickets live in the store and
// signatures are re-requested on the next session.
type Session struct {
	stor.Store
	Signer  ticket.Signer
	Address string // holder address as presented to the signer
	Clock   ticket.Clock

	mu       sync.Mutex
	records  map[string]*ticket.SignatureRecord // cached, by event id
	inflight map[string]*signCall
}

// signCall tracks one outstanding signature request so that concurrent
// callers for the same event coalesce onto it.
type signCall struct {
	done   chan struct{}
	record *ticket.SignatureRecord
	err    error
}

// NewSession returns an issuance session for a holder.
func NewSession(st stor.Store, signer ticket.Signer, address string) *Session {
	return &Session{
		Store:    st,
		Signer:   signer,
		Address:  address,
		Clock:    ticket.SystemClock,
		records:  make(map[string]*ticket.SignatureRecord),
		inflight: make(map[string]*signCall),
	}
}

// EnsureTicket returns the holder's ticket for the event, creating it
// if none exists.
func (s *Session) EnsureTicket(eventID string) (*stor.Ticket, error) {
	return EnsureTicket(s.Store, s.Clock, eventID, s.Address)
}

// EnsureTicket returns the holder's ticket for the event, creating it
// if none exists. The store's unique (event, address) index makes a
// racing duplicate create collapse onto the surviving row.
func EnsureTicket(st stor.Store, clock ticket.Clock, eventID, address string) (*stor.Ticket, error) {

	event, err := st.Event().Get(eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownEvent
	}
	if err != nil {
		return nil, err
	}
	if !event.Active(clock.Now()) {
		return nil, ErrEventExpired
	}

	address = ticket.NormalizeAddress(address)

	tk, err := st.Ticket().FindByEventAndAddress(eventID, address)
	if err == nil {
		return tk, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tk = &stor.Ticket{
		UUID:        uuid.New().String(),
		EventID:     eventID,
		Address:     address,
		PurchasedAt: clock.Now(),
	}
	err = st.Ticket().Create(tk)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// another create call won the race; use its row
		return st.Ticket().FindByEventAndAddress(eventID, address)
	}
	if err != nil {
		return nil, err
	}

	// best-effort aggregate, never a source of truth
	if err := st.Event().IncrementCounters(eventID, 1, 0); err != nil {
		log.Warnf("Failed to increment the sold counter of event %s: %v", eventID, err)
	}

	log.Infof("Ticket %s issued to %s for event %s", tk.UUID, address, eventID)
	return tk, nil
}

// Credential encodes a fresh payload for the event: the cached (or
// newly requested) signature plus the current rotation window. Call it
// again after a rotation to obtain the next payload; the signature is
// reused, only the window changes.
func (s *Session) Credential(eventID string) ([]byte, error) {

	tk, err := s.EnsureTicket(eventID)
	if err != nil {
		return nil, err
	}

	record, err := s.signatureFor(eventID, tk.UUID)
	if err != nil {
		return nil, err
	}

	return ticket.Encode(record, eventID, ticket.CurrentWindow(s.Clock))
}

// signatureFor returns the cached signature record for the event, or
// requests one. At most one sign request per event is in flight:
// concurrent callers wait on it, and a declined request leaves the
// session retryable.
func (s *Session) signatureFor(eventID, tokenID string) (*ticket.SignatureRecord, error) {

	s.mu.Lock()
	if record, ok := s.records[eventID]; ok {
		s.mu.Unlock()
		return record, nil
	}
	if call, ok := s.inflight[eventID]; ok {
		s.mu.Unlock()
		<-call.done
		return call.record, call.err
	}
	call := &signCall{done: make(chan struct{})}
	s.inflight[eventID] = call
	s.mu.Unlock()

	message := ticket.SigningMessage(s.Address, tokenID, eventID)
	signature, err := s.Signer.Sign(message)

	s.mu.Lock()
	delete(s.inflight, eventID)
	if err != nil {
		log.Warnf("Signature request failed for event %s: %v", eventID, err)
		call.err = err
	} else {
		call.record = &ticket.SignatureRecord{
			Address:   s.Address,
			TokenID:   tokenID,
			Signature: signature,
		}
		s.records[eventID] = call.record
	}
	s.mu.Unlock()
	close(call.done)

	return call.record, call.err
}

// NextRotation returns how long the current payload remains the
// freshest one, for display alongside a QR code.
func (s *Session) NextRotation() time.Duration {
	now := s.Clock.Now()
	next := (ticket.WindowAt(now) + 1) * ticket.RotationSeconds
	return time.Unix(next, 0).Sub(now)
}
