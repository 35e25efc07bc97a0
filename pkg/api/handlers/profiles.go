package handlers

import (
	"net/http"

	"github.com/car-advisor/advisor/pkg/profiles"
)

// Profiles lists the five archetypes in enumeration order
func Profiles(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": profiles.All(),
	})
}
