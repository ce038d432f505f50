// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// The scan package runs the gate-side verification of a credential
// payload and owns the one-time-use transition of tickets.
package scan

import (
	"embed"
	"errors"

	"github.com/spotlight-events/spotlight-server/pkg/stor"
	"github.com/spotlight-events/spotlight-server/pkg/ticket"

	log "github.com/sirupsen/logrus"
	jsonschema "github.com/xeipuuv/gojsonschema"
	"gorm.io/gorm"
)

//go:embed data/credential.schema.json
var jsfs embed.FS

// List of verdict values as strings
const (
	GRANTED        = "granted"
	ALREADY_USED   = "already_used"
	EXPIRED_WINDOW = "expired_window"
	REJECTED       = "rejected"
)

// Rejection reasons, one per failing stage. The distinction matters to
// the operator: "wrong event" means switch the gate, "stale window"
// means ask the holder to refresh, "event expired" means the event is
// over, "bad signature" is a potential forgery.
const (
	ReasonMalformedPayload = "malformed payload"
	ReasonWrongEvent       = "wrong event"
	ReasonUnknownEvent     = "unknown event"
	ReasonEventExpired     = "event expired"
	ReasonTicketMismatch   = "ticket mismatch"
	ReasonStaleWindow      = "stale window"
	ReasonBadSignature     = "bad signature"
	ReasonAlreadyUsed      = "ticket already used"
)

// WindowTolerance is the accepted distance between the payload window
// and the current one. One window (not zero) absorbs clock skew and a
// transmission that straddles a rotation boundary, while bounding the
// replay surface to about two rotation periods.
const WindowTolerance = 1

// Result is the terminal verdict of one verification attempt. Every
// expected protocol condition produces a Result, never an error.
type Result struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason,omitempty"`
	Address string `json:"address,omitempty"`
	TokenID string `json:"tokenId,omitempty"`
	EventID string `json:"eventId,omitempty"`
}

// Granted reports whether the attempt ended in admission.
func (r *Result) Granted() bool {
	return r.Verdict == GRANTED
}

// Gate verifies credentials against a selected active event. Multiple
// gates may run concurrently against the same store; the one-time-use
// guarantee rests on the store's conditional scanned update.
type Gate struct {
	stor.Store
	Clock ticket.Clock
}

// NewGate returns a gate bound to a store, reading the wall clock.
func NewGate(st stor.Store) *Gate {
	return &Gate{Store: st, Clock: ticket.SystemClock}
}

// Verify runs the staged check of a raw payload against the gate's
// active event and returns a terminal verdict. The only error returns
// are store failures; every protocol condition, including fraud
// signals, is a verdict.
//
// The stages are strictly ordered: parse, event match, event liveness,
// ticket status, window freshness, signature, lazy materialization,
// commit. Cheap checks run first; the signature check remains the sole
// authority on holder identity.
func (g *Gate) Verify(raw []byte, activeEventID string) (*Result, error) {

	// parse and validate the payload
	cred, ok := decodePayload(raw)
	if !ok {
		return &Result{Verdict: REJECTED, Reason: ReasonMalformedPayload}, nil
	}

	res := &Result{
		Address: cred.Address,
		TokenID: cred.TokenID,
		EventID: cred.EventID,
	}

	// a credential for another event must never open this gate
	if cred.EventID != activeEventID {
		res.Verdict = REJECTED
		res.Reason = ReasonWrongEvent
		return res, nil
	}

	// the event must exist and still be running
	event, err := g.Store.Event().Get(cred.EventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		res.Verdict = REJECTED
		res.Reason = ReasonUnknownEvent
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	if !event.Active(g.Clock.Now()) {
		res.Verdict = REJECTED
		res.Reason = ReasonEventExpired
		return res, nil
	}

	// ticket status; a missing ticket may still be materialized after
	// the signature proves ownership
	address := ticket.NormalizeAddress(cred.Address)
	ticketMissing := false
	tk, err := g.Store.Ticket().Get(cred.TokenID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		ticketMissing = true
	case err != nil:
		return nil, err
	case tk.Scanned:
		// fraud signal, not a benign retry
		log.Warnf("Ticket %s already used, presented again at event %s by %s", cred.TokenID, cred.EventID, address)
		res.Verdict = ALREADY_USED
		res.Reason = ReasonAlreadyUsed
		return res, nil
	case tk.EventID != cred.EventID || tk.Address != address:
		// the token id belongs to someone else's ticket
		res.Verdict = REJECTED
		res.Reason = ReasonTicketMismatch
		return res, nil
	}

	// window freshness; a stale payload is the screenshot case
	current := ticket.CurrentWindow(g.Clock)
	if diff := current - cred.Window; diff > WindowTolerance || diff < -WindowTolerance {
		res.Verdict = EXPIRED_WINDOW
		res.Reason = ReasonStaleWindow
		return res, nil
	}

	// signature: the authoritative proof of holder identity
	message := ticket.SigningMessage(cred.Address, cred.TokenID, cred.EventID)
	if err := ticket.VerifyHolderSignature(cred.Address, message, cred.Signature); err != nil {
		// logged distinctly from staleness: this is potential forgery
		log.Warnf("Signature verification failed for %s on event %s", address, cred.EventID)
		res.Verdict = REJECTED
		res.Reason = ReasonBadSignature
		return res, nil
	}

	// lazy materialization: the signature just proved legitimate
	// ownership, so the ticket record may be created now
	if ticketMissing {
		if _, err := g.Store.Ticket().Ensure(cred.TokenID, cred.EventID, address); err != nil {
			return nil, err
		}
		if err := g.Store.Event().IncrementCounters(cred.EventID, 1, 0); err != nil {
			return nil, err
		}
	}

	// commit: the conditional update is what makes one-time-use hold
	// under concurrent gates
	won, err := g.Store.Ticket().MarkScanned(cred.TokenID)
	if err != nil {
		return nil, err
	}
	if !won {
		log.Warnf("Ticket %s lost the scan race at event %s", cred.TokenID, cred.EventID)
		res.Verdict = ALREADY_USED
		res.Reason = ReasonAlreadyUsed
		return res, nil
	}
	if err := g.Store.Event().IncrementCounters(cred.EventID, 0, 1); err != nil {
		return nil, err
	}

	log.Infof("Access granted to %s for event %s", address, cred.EventID)
	res.Verdict = GRANTED
	return res, nil
}

// decodePayload validates the raw payload against the credential json
// schema and parses it. Schema validation enforces the presence of the
// address and signature fields while letting unknown fields through.
func decodePayload(raw []byte) (*ticket.Credential, bool) {

	schema, err := jsfs.ReadFile("data/credential.schema.json")
	if err != nil {
		log.Errorf("Failed to read the credential schema: %v", err)
		return nil, false
	}

	schemaLoader := jsonschema.NewBytesLoader(schema)
	documentLoader := jsonschema.NewBytesLoader(raw)

	result, err := jsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, false
	}
	if !result.Valid() {
		for _, desc := range result.Errors() {
			log.Debugf("Invalid credential payload: %s", desc)
		}
		return nil, false
	}

	cred, err := ticket.Decode(raw)
	if err != nil {
		return nil, false
	}
	return cred, true
}
