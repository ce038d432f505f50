// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/spotlight-events/spotlight-server/pkg/api"
)

func (s *Server) setRoutes() *chi.Mux {

	// Set api controller dependencies
	a := api.NewAPICtrl(s.Config, s.Store)

	// Define the router
	r := chi.NewRouter()

	// Recovery middleware
	r.Use(middleware.Recoverer)

	// Heartbeat (excluded from logs)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("The Spotlight Server is running!"))
	})

	// Group for all other routes
	r.Group(func(r chi.Router) {
		// Logger middleware
		r.Use(middleware.Logger)

		r.NotFound(notFoundProblemDetail)

		// CORS Configuration
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"}, // URL of the wallet frontend
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300, // Maximum value not ignored by any of major browsers
		}))

		// Public Routes
		r.Group(func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			// Events, read only
			r.Get("/events", a.ListActiveEvents)   // GET /events
			r.Get("/events/{eventID}", a.GetEvent) // GET /events/123

			// Tickets
			r.Route("/tickets", func(r chi.Router) {
				r.Get("/", a.ListTicketsForAddress) // GET /tickets{?address}
				r.Post("/", a.CreateTicket)         // POST /tickets

				r.Route("/{ticketID}", func(r chi.Router) {
					r.Get("/", a.GetTicket) // GET /tickets/123
				})
			})

			// Credential encoding
			r.Post("/credentials", a.EncodeCredential) // POST /credentials

			// Gate verification
			r.Post("/scan/{eventID}", a.VerifyCredential) // POST /scan/123
		})

		// Operator login
		r.Post("/login", Login(s.Config)) // POST /login

		// Private Routes
		// Require JWT Authentication
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(s.Config))
			r.Use(render.SetContentType(render.ContentTypeJSON))

			// Event management
			r.Post("/events", a.CreateEvent)             // POST /events
			r.Get("/events/owned", a.ListOwnedEvents)    // GET /events/owned{?owner}
			r.Delete("/events/{eventID}", a.DeleteEvent) // DELETE /events/123
		})
	})

	return r
}

// notFoundProblemDetail formats not found errors as problem details, for the sake of consistency.
func notFoundProblemDetail(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{"type": "about:blank", "title": "Endpoint not found."}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)

	json.NewEncoder(w).Encode(response)
}
