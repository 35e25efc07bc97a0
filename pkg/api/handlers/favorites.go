package handlers

import (
	"net/http"

	"github.com/car-advisor/advisor/pkg/engine"
	"github.com/car-advisor/advisor/pkg/favorites"
	"github.com/car-advisor/advisor/pkg/render"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// FavoritesHandler serves the favorites list and toggle
type FavoritesHandler struct {
	store  favorites.Store
	engine *engine.Engine
}

// NewFavoritesHandler creates a favorites handler
func NewFavoritesHandler(store favorites.Store, eng *engine.Engine) *FavoritesHandler {
	return &FavoritesHandler{store: store, engine: eng}
}

// FavoritesResponse is the favorites page. Count is the total number of
// favorites; IDs and Cards hold at most the first nine.
type FavoritesResponse struct {
	IDs   []string      `json:"ids"`
	Count int           `json:"count"`
	Cards []render.Card `json:"cards"`
}

// List returns up to nine favorites with their cards
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	client := chi.URLParam(r, "client")

	ids, err := h.store.List(r.Context(), client)
	if err != nil {
		log.WithError(err).Error("Failed to list favorites")
		WriteInternalError(w, "failed to load favorites")
		return
	}

	top := favorites.Top(ids)
	cards, err := h.engine.FavoriteCards(r.Context(), top)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, FavoritesResponse{IDs: top, Count: len(ids), Cards: cards})
}

// Status reports whether one car is a favorite
func (h *FavoritesHandler) Status(w http.ResponseWriter, r *http.Request) {
	client := chi.URLParam(r, "client")
	carID := chi.URLParam(r, "carID")

	favorited, err := h.store.Contains(r.Context(), client, carID)
	if err != nil {
		log.WithError(err).Error("Failed to read favorite state")
		WriteInternalError(w, "failed to load favorites")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"car_id":    carID,
		"favorited": favorited,
	})
}

// Toggle adds or removes one car
func (h *FavoritesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	client := chi.URLParam(r, "client")
	carID := chi.URLParam(r, "carID")

	added, err := h.store.Toggle(r.Context(), client, carID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"car_id":    carID,
		"favorited": added,
	})
}
