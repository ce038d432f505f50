package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/spotlight-events/spotlight-server/pkg/scan"
	"github.com/spotlight-events/spotlight-server/pkg/ticket"
)

// ---
// Scan utilities
// ---

// issueCredential creates an event, a ticket for a fresh holder key and
// a signed credential payload stamped with the given window offset.
func issueCredential(t *testing.T, windowOffset int64) (*EventTest, *TicketTest, []byte) {

	inEvent, _ := createEvent(t)

	signer, err := ticket.NewKeySigner()
	if err != nil {
		t.Fatal(err)
	}
	inTicket, response := createTicket(t, inEvent.UUID, signer.Address())
	if !checkResponseCode(t, http.StatusCreated, response) {
		t.FailNow()
	}

	message := ticket.SigningMessage(signer.Address(), inTicket.UUID, inEvent.UUID)
	signature, err := signer.Sign(message)
	if err != nil {
		t.Fatal(err)
	}

	record := &ticket.SignatureRecord{
		Address:   signer.Address(),
		TokenID:   inTicket.UUID,
		Signature: signature,
	}
	window := ticket.CurrentWindow(ticket.SystemClock) + windowOffset
	payload, err := ticket.Encode(record, inEvent.UUID, window)
	if err != nil {
		t.Fatal(err)
	}
	return inEvent, inTicket, payload
}

func scanPayload(t *testing.T, eventID string, payload []byte) (*httptest.ResponseRecorder, *ScanResponse) {

	path := "/scan/" + eventID
	req, _ := http.NewRequest("POST", path, bytes.NewReader(payload))
	response := executeRequest(req)

	out := &ScanResponse{Result: &scan.Result{}}
	if err := json.Unmarshal(response.Body.Bytes(), out); err != nil {
		t.Fatalf("Failed to parse the scan response: %v", err)
	}
	return response, out
}

// ---
// Scan Tests
// ---

func TestScanGrantThenConflict(t *testing.T) {

	inEvent, _, payload := issueCredential(t, 0)

	// first scan is granted
	response, out := scanPayload(t, inEvent.UUID, payload)
	if checkResponseCode(t, http.StatusOK, response) {
		if out.Verdict != scan.GRANTED {
			t.Errorf("Expected a granted verdict. Got %s", out.Verdict)
		}
		if out.Message == "" {
			t.Error("Expected an operator message")
		}
	}

	// replaying the same payload is a conflict
	response, out = scanPayload(t, inEvent.UUID, payload)
	if checkResponseCode(t, http.StatusConflict, response) {
		if out.Verdict != scan.ALREADY_USED {
			t.Errorf("Expected an already used verdict. Got %s", out.Verdict)
		}
	}

	deleteEvent(t, inEvent.UUID)
}

func TestScanStaleWindow(t *testing.T) {

	// a payload five rotations old is the screenshot case
	inEvent, _, payload := issueCredential(t, -5)

	response, out := scanPayload(t, inEvent.UUID, payload)
	if checkResponseCode(t, http.StatusGone, response) {
		if out.Verdict != scan.EXPIRED_WINDOW {
			t.Errorf("Expected an expired window verdict. Got %s", out.Verdict)
		}
	}

	deleteEvent(t, inEvent.UUID)
}

func TestScanWrongEvent(t *testing.T) {

	inEvent, _, payload := issueCredential(t, 0)
	otherEvent, _ := createEvent(t)

	// a credential for another event never opens this gate
	response, out := scanPayload(t, otherEvent.UUID, payload)
	if checkResponseCode(t, http.StatusBadRequest, response) {
		if out.Verdict != scan.REJECTED {
			t.Errorf("Expected a rejected verdict. Got %s", out.Verdict)
		}
	}

	deleteEvent(t, inEvent.UUID)
	deleteEvent(t, otherEvent.UUID)
}

func TestScanTamperedPayload(t *testing.T) {

	inEvent, _, payload := issueCredential(t, 0)

	// swap the token id for another one; the signature no longer matches
	var doc map[string]interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatal(err)
	}
	doc["tokenId"] = uuid.New().String()
	tampered, _ := json.Marshal(doc)

	response, out := scanPayload(t, inEvent.UUID, tampered)
	if checkResponseCode(t, http.StatusBadRequest, response) {
		if out.Verdict != scan.REJECTED {
			t.Errorf("Expected a rejected verdict. Got %s", out.Verdict)
		}
	}

	deleteEvent(t, inEvent.UUID)
}

func TestScanMalformedPayload(t *testing.T) {

	inEvent, _ := createEvent(t)

	response, out := scanPayload(t, inEvent.UUID, []byte("not a credential"))
	if checkResponseCode(t, http.StatusBadRequest, response) {
		if out.Verdict != scan.REJECTED {
			t.Errorf("Expected a rejected verdict. Got %s", out.Verdict)
		}
	}

	deleteEvent(t, inEvent.UUID)
}
