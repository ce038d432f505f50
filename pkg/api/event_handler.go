// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/spotlight-events/spotlight-server/pkg/stor"
	"github.com/spotlight-events/spotlight-server/pkg/ticket"
)

// CreateEvent creates an event in the db and returns it
func (a *APICtrl) CreateEvent(w http.ResponseWriter, r *http.Request) {

	// get the payload
	eventRequest := &EventRequest{}
	if err := render.Bind(r, eventRequest); err != nil {
		log.Errorf("error binding a Create Event request: %v", err)
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if !eventRequest.ExpiresAt.After(time.Now()) {
		render.Render(w, r, ErrInvalidRequest(errors.New("the event expiry must be in the future")))
		return
	}

	// title case the display name
	c := cases.Title(language.Und, cases.NoLower)

	event := &stor.Event{
		UUID:      uuid.New().String(),
		Name:      c.String(eventRequest.Name),
		Owner:     ticket.NormalizeAddress(eventRequest.Owner),
		ExpiresAt: eventRequest.ExpiresAt,
	}
	if err := a.Store.Event().Create(event); err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}

	log.Printf("New event %s (%s) created by %s", event.UUID, event.Name, event.Owner)

	render.Status(r, http.StatusCreated)
	if err := render.Render(w, r, NewEventResponse(event)); err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}
}

// ListActiveEvents returns the events that have not expired yet
func (a *APICtrl) ListActiveEvents(w http.ResponseWriter, r *http.Request) {

	events, err := a.Store.Event().ListActive(time.Now())
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}
	if err := render.RenderList(w, r, NewEventListResponse(events)); err != nil {
		render.Render(w, r, ErrRender(err))
	}
}

// ListOwnedEvents returns the events created by a principal
func (a *APICtrl) ListOwnedEvents(w http.ResponseWriter, r *http.Request) {

	owner := r.URL.Query().Get("owner")
	if owner == "" {
		render.Render(w, r, ErrInvalidRequest(errors.New("missing required owner parameter")))
		return
	}

	events, err := a.Store.Event().ListByOwner(ticket.NormalizeAddress(owner))
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}
	if err := render.RenderList(w, r, NewEventListResponse(events)); err != nil {
		render.Render(w, r, ErrRender(err))
	}
}

// GetEvent returns a specific event
func (a *APICtrl) GetEvent(w http.ResponseWriter, r *http.Request) {

	var eventID string
	if eventID = chi.URLParam(r, "eventID"); eventID == "" {
		render.Render(w, r, ErrInvalidRequest(errors.New("missing required event identifier")))
		return
	}

	event, err := a.Store.Event().Get(eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		render.Render(w, r, ErrNotFound)
		return
	}
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}

	if err := render.Render(w, r, NewEventResponse(event)); err != nil {
		render.Render(w, r, ErrRender(err))
	}
}

// DeleteEvent removes an event. Tickets already issued keep their rows;
// scans against the removed event fail the event lookup stage.
func (a *APICtrl) DeleteEvent(w http.ResponseWriter, r *http.Request) {

	var eventID string
	if eventID = chi.URLParam(r, "eventID"); eventID == "" {
		render.Render(w, r, ErrInvalidRequest(errors.New("missing required event identifier")))
		return
	}

	event, err := a.Store.Event().Get(eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		render.Render(w, r, ErrNotFound)
		return
	}
	if err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}

	if err := a.Store.Event().Delete(event); err != nil {
		render.Render(w, r, ErrServer(err))
		return
	}

	if err := render.Render(w, r, NewEventResponse(event)); err != nil {
		render.Render(w, r, ErrRender(err))
	}
}

// --
// Request and Response payloads for the REST api.
// --

// EventRequest is the request payload for events.
type EventRequest struct {
	Name      string    `json:"name" validate:"required"`
	Owner     string    `json:"owner" validate:"required"`
	ExpiresAt time.Time `json:"expires_at" validate:"required"`
}

// Bind post-processes requests after unmarshalling.
func (e *EventRequest) Bind(r *http.Request) error {
	validate := validator.New()
	return validate.Struct(e)
}

// EventResponse is the response payload for events.
type EventResponse struct {
	*stor.Event
}

// NewEventResponse creates a rendered event
func NewEventResponse(event *stor.Event) *EventResponse {
	return &EventResponse{Event: event}
}

// Render processes responses before marshalling.
func (e *EventResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// NewEventListResponse creates a rendered list of events
func NewEventListResponse(events *[]stor.Event) []render.Renderer {
	list := []render.Renderer{}
	for i := range *events {
		list = append(list, NewEventResponse(&(*events)[i]))
	}
	return list
}
