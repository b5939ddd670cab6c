package api

import (
	"park-permit-backend/internal/refresh"
	"park-permit-backend/internal/store"

	"github.com/SherClockHolmes/webpush-go"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	refresh *refresh.Service
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, r *refresh.Service, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		refresh: r,
		webpush: webpushOptions,
	}
}
