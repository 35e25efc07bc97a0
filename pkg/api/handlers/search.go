package handlers

import (
	"net/http"

	"github.com/car-advisor/advisor/pkg/search"
)

// SearchHandler validates the detailed-search form
type SearchHandler struct {
	validator *search.Validator
}

// NewSearchHandler creates a search validation handler
func NewSearchHandler() *SearchHandler {
	return &SearchHandler{validator: search.NewValidator()}
}

// Handle returns the normalized form or a VALIDATION_ERROR envelope
func (h *SearchHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if !decodeJSON(w, r, &req, true) {
		return
	}

	normalized, err := h.validator.Validate(req)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, normalized)
}
