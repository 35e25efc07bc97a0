package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/car-advisor/advisor/pkg/adapter"
	"github.com/car-advisor/advisor/pkg/engine"
	"github.com/car-advisor/advisor/pkg/favorites"
	"github.com/car-advisor/advisor/pkg/search"
	"github.com/car-advisor/advisor/pkg/types"
	"github.com/car-advisor/advisor/pkg/wizard"
	log "github.com/sirupsen/logrus"
)

// MaxBodySize caps JSON request bodies
const MaxBodySize = 1 << 20

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("Failed to encode JSON response")
	}
}

// WriteError writes an error response
func WriteError(w http.ResponseWriter, code string, message string, status int, details map[string]interface{}) {
	response := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Status:  status,
			Details: details,
		},
	}

	WriteJSON(w, status, response)
}

// WriteBadRequest writes a 400 error
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, "BAD_REQUEST", message, http.StatusBadRequest, nil)
}

// WriteInternalError writes a 500 error
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, "INTERNAL_ERROR", message, http.StatusInternalServerError, nil)
}

// WriteValidationError writes a validation error
func WriteValidationError(w http.ResponseWriter, message string, details map[string]interface{}) {
	WriteError(w, "VALIDATION_ERROR", message, http.StatusBadRequest, details)
}

// WriteNotFound writes a 404 error
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, "NOT_FOUND", message, http.StatusNotFound, nil)
}

// WriteDomainError maps advisor errors onto the error envelope
func WriteDomainError(w http.ResponseWriter, err error) {
	var incomplete *wizard.IncompleteStepError
	var invalid *search.ValidationError

	switch {
	case errors.As(err, &incomplete):
		missing := make([]string, len(incomplete.Missing))
		for i, k := range incomplete.Missing {
			missing[i] = string(k)
		}
		WriteError(w, "INCOMPLETE_STEP", "すべての質問に回答してください", http.StatusBadRequest, map[string]interface{}{
			"step":    int(incomplete.Step),
			"missing": missing,
		})
	case errors.As(err, &invalid):
		details := make(map[string]interface{}, len(invalid.Fields))
		for k, v := range invalid.Fields {
			details[k] = v
		}
		WriteValidationError(w, "invalid search request", details)
	case errors.Is(err, types.ErrInvalidAnswer):
		WriteError(w, "INVALID_ANSWER", err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, favorites.ErrInvalidKey):
		WriteBadRequest(w, err.Error())
	case errors.Is(err, wizard.ErrSessionNotFound):
		WriteNotFound(w, err.Error())
	case errors.Is(err, adapter.ErrIncompleteDiagnosis):
		WriteError(w, "INCOMPLETE_DIAGNOSIS", "診断データが不完全です。診断をやり直してください。", http.StatusConflict, nil)
	case errors.Is(err, wizard.ErrRequestInFlight):
		WriteError(w, "REQUEST_IN_FLIGHT", err.Error(), http.StatusConflict, nil)
	case errors.Is(err, wizard.ErrNoNextStep):
		WriteError(w, "NO_NEXT_STEP", err.Error(), http.StatusConflict, nil)
	case errors.Is(err, engine.ErrUpstream):
		WriteError(w, "UPSTREAM_ERROR", "検索中にエラーが発生しました", http.StatusBadGateway, map[string]interface{}{
			"cause": err.Error(),
		})
	default:
		log.WithError(err).Error("Unhandled request error")
		WriteInternalError(w, "internal error")
	}
}

// decodeJSON reads a size-limited JSON body into v. An empty body leaves
// v untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		WriteBadRequest(w, fmt.Sprintf("Invalid JSON body: %v", err))
		return false
	}
	return true
}
