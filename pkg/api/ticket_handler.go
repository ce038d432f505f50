// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/spotlight-events/spotlight-server/pkg/issue"
	"github.com/spotlight-events/spotlight-server/pkg/stor"
	"github.com/spotlight-events/spotlight-server/pkg/ticket"
)

// CreateTicket issues a ticket for a (holder, event) pair. The call is
// idempotent: re-issuing returns the existing ticket.
func (a *APICtrl) CreateTicket(w http.ResponseWriter, r *http.Request) {

	// get the payload
	ticketRequest := &TicketRequest{}
	if err := render.Bind(r, ticketRequest); err != nil {
		log.Errorf("error binding a Create Ticket request: %v", err)
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	tk, err := issue.EnsureTicket(a.Store, ticket.SystemClock, ticketRequest.EventID, ticketRequest.Address)
	if errors.Is(err, issue.ErrUnknownEvent) || errors.Is(err, issue.ErrEventExpired) {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}

	render.Status(r, http.StatusCreated)
	if err := render.Render(w, r, NewTicketResponse(tk)); err != nil {
		render.Render(w, r, ErrRender(err))
	}
}

// ListTicketsForAddress returns the tickets held by an address
func (a *APICtrl) ListTicketsForAddress(w http.ResponseWriter, r *http.Request) {

	address := r.URL.Query().Get("address")
	if address == "" {
		render.Render(w, r, ErrInvalidRequest(errors.New("missing required address parameter")))
		return
	}

	tickets, err := a.Store.Ticket().FindByAddress(ticket.NormalizeAddress(address))
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}
	if err := render.RenderList(w, r, NewTicketListResponse(tickets)); err != nil {
		render.Render(w, r, ErrRender(err))
	}
}

// GetTicket returns a specific ticket
func (a *APICtrl) GetTicket(w http.ResponseWriter, r *http.Request) {

	var ticketID string
	if ticketID = chi.URLParam(r, "ticketID"); ticketID == "" {
		render.Render(w, r, ErrInvalidRequest(errors.New("missing required ticket identifier")))
		return
	}

	tk, err := a.Store.Ticket().Get(ticketID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		render.Render(w, r, ErrNotFound)
		return
	}
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}

	if err := render.Render(w, r, NewTicketResponse(tk)); err != nil {
		render.Render(w, r, ErrRender(err))
	}
}

// EncodeCredential builds a credential payload from a signature record,
// stamped with the current rotation window. The holder re-calls this
// every rotation; the same signature yields a fresh payload each time.
func (a *APICtrl) EncodeCredential(w http.ResponseWriter, r *http.Request) {

	// get the payload
	credRequest := &CredentialRequest{}
	if err := render.Bind(r, credRequest); err != nil {
		log.Errorf("error binding an Encode Credential request: %v", err)
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	record := &ticket.SignatureRecord{
		Address:   credRequest.Address,
		TokenID:   credRequest.TokenID,
		Signature: credRequest.Signature,
	}
	raw, err := ticket.Encode(record, credRequest.EventID, ticket.CurrentWindow(ticket.SystemClock))
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

// --
// Request and Response payloads for the REST api.
// --

// TicketRequest is the request payload for tickets.
type TicketRequest struct {
	EventID string `json:"event_id" validate:"required,uuid"`
	Address string `json:"address" validate:"required"`
}

// Bind post-processes requests after unmarshalling.
func (t *TicketRequest) Bind(r *http.Request) error {
	validate := validator.New()
	return validate.Struct(t)
}

// CredentialRequest is the request payload for credential encoding.
type CredentialRequest struct {
	Address   string `json:"address" validate:"required"`
	TokenID   string `json:"token_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
	EventID   string `json:"event_id" validate:"required,uuid"`
}

// Bind post-processes requests after unmarshalling.
func (c *CredentialRequest) Bind(r *http.Request) error {
	validate := validator.New()
	return validate.Struct(c)
}

// TicketResponse is the response payload for tickets.
type TicketResponse struct {
	*stor.Ticket
}

// NewTicketResponse creates a rendered ticket
func NewTicketResponse(tk *stor.Ticket) *TicketResponse {
	return &TicketResponse{Ticket: tk}
}

// Render processes responses before marshalling.
func (t *TicketResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// NewTicketListResponse creates a rendered list of tickets
func NewTicketListResponse(tickets *[]stor.Ticket) []render.Renderer {
	list := []render.Renderer{}
	for i := range *tickets {
		list = append(list, NewTicketResponse(&(*tickets)[i]))
	}
	return list
}
