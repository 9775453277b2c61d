// Package handler is the gin HTTP surface: session intake, the therapist
// console endpoints, and the websocket upgrade. All pairing and relay logic
// lives in the chathub; handlers only translate HTTP to core calls.
package handler

import (
	"guardedheart/backend/internal/chathub"
	"guardedheart/backend/internal/storage"
)

// Handler carries the hub and the profile store into the route handlers.
type Handler struct {
	Hub     *chathub.Hub
	Storage storage.Storage
}

func NewHandler(hub *chathub.Hub, s storage.Storage) *Handler {
	return &Handler{Hub: hub, Storage: s}
}
