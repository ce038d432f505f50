// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/spotlight-events/spotlight-server/pkg/scan"
)

// VerifyCredential checks a scanned credential payload against the
// event of the gate and commits the one-time-use transition. Every
// verdict maps to a distinct http status so that a thin scanner client
// can decide on the status code alone.
func (a *APICtrl) VerifyCredential(w http.ResponseWriter, r *http.Request) {

	var eventID string
	if eventID = chi.URLParam(r, "eventID"); eventID == "" {
		render.Render(w, r, ErrInvalidRequest(errors.New("missing required event identifier")))
		return
	}

	// the payload is the raw scanned content, parsed by the gate itself
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	gate := scan.NewGate(a.Store)
	result, err := gate.Verify(raw, eventID)
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}

	render.Status(r, verdictStatus(result.Verdict))
	if err := render.Render(w, r, NewScanResponse(result)); err != nil {
		render.Render(w, r, ErrRender(err))
	}
}

// verdictStatus maps a verdict to its http status
func verdictStatus(verdict string) int {
	switch verdict {
	case scan.GRANTED:
		return http.StatusOK
	case scan.ALREADY_USED:
		return http.StatusConflict
	case scan.EXPIRED_WINDOW:
		return http.StatusGone
	default:
		return http.StatusBadRequest
	}
}

// operatorMessage phrases a verdict for the person holding the scanner.
// An already used ticket is called out as a duplicate entry attempt, a
// stale window only asks the holder to refresh their code.
func operatorMessage(result *scan.Result) string {
	switch result.Verdict {
	case scan.GRANTED:
		return "Access granted."
	case scan.ALREADY_USED:
		return "Ticket already used. Do not let this person in."
	case scan.EXPIRED_WINDOW:
		return "Code expired. Ask the holder to refresh and scan again."
	default:
		return "Invalid ticket: " + result.Reason + "."
	}
}

// ScanResponse is the response payload for scans.
type ScanResponse struct {
	*scan.Result
	Message string `json:"message"`
}

// NewScanResponse creates a rendered scan result
func NewScanResponse(result *scan.Result) *ScanResponse {
	return &ScanResponse{
		Result:  result,
		Message: operatorMessage(result),
	}
}

// Render processes responses before marshalling.
func (s *ScanResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
