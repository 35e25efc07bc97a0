package handlers

import (
	"net/http"

	"github.com/car-advisor/advisor/pkg/audit"
	"github.com/car-advisor/advisor/pkg/engine"
	"github.com/car-advisor/advisor/pkg/favorites"
	"github.com/car-advisor/advisor/pkg/profiles"
	"github.com/car-advisor/advisor/pkg/render"
	"github.com/car-advisor/advisor/pkg/types"
	"github.com/car-advisor/advisor/pkg/wizard"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// DiagnosisHandler serves the step-by-step diagnosis
type DiagnosisHandler struct {
	sessions  *wizard.Store
	engine    *engine.Engine
	favorites favorites.Store
}

// NewDiagnosisHandler creates a diagnosis handler. favs may be nil.
func NewDiagnosisHandler(sessions *wizard.Store, eng *engine.Engine, favs favorites.Store) *DiagnosisHandler {
	return &DiagnosisHandler{sessions: sessions, engine: eng, favorites: favs}
}

// DiagnosisResponse is a session snapshot plus the matched profile copy
type DiagnosisResponse struct {
	Session wizard.Snapshot   `json:"session"`
	Profile *profiles.Profile `json:"profile,omitempty"`
}

// RecommendBody is the optional body of the recommend call
type RecommendBody struct {
	Client string          `json:"client"`
	Sort   render.SortMode `json:"sort"`
}

// ModeBody selects the search UI
type ModeBody struct {
	Mode types.SearchMode `json:"mode"`
}

func (h *DiagnosisHandler) session(w http.ResponseWriter, r *http.Request) (*wizard.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return nil, false
	}
	return s, true
}

func (h *DiagnosisHandler) writeSession(w http.ResponseWriter, status int, s *wizard.Session) {
	resp := DiagnosisResponse{Session: s.Snapshot()}
	if resp.Session.Result != nil {
		if p, ok := profiles.Get(resp.Session.Result.Type); ok {
			resp.Profile = &p
		}
	}
	WriteJSON(w, status, resp)
}

// Create starts a new diagnosis
func (h *DiagnosisHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	log.WithFields(log.Fields{
		"session":    s.ID(),
		"request_id": chimiddleware.GetReqID(r.Context()),
	}).Info("Diagnosis started")
	h.writeSession(w, http.StatusCreated, s)
}

// Get returns the current state
func (h *DiagnosisHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeSession(w, http.StatusOK, s)
}

// Answers records a batch of answers, all or nothing
func (h *DiagnosisHandler) Answers(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var body map[string]interface{}
	if !decodeJSON(w, r, &body, false) {
		return
	}
	if len(body) == 0 {
		WriteBadRequest(w, "no answers given")
		return
	}

	answers := make(map[types.QuestionKey]interface{}, len(body))
	for k, v := range body {
		answers[types.QuestionKey(k)] = v
	}
	if err := s.AnswerAll(answers); err != nil {
		WriteDomainError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, s)
}

// Next advances one step
func (h *DiagnosisHandler) Next(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.engine.Next(s); err != nil {
		WriteDomainError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, s)
}

// Back returns to the previous step
func (h *DiagnosisHandler) Back(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Back(); err != nil {
		WriteDomainError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, s)
}

// Reset clears the session back to step one
func (h *DiagnosisHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Reset(); err != nil {
		WriteDomainError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, s)
}

// Request shows the recommendation request the diagnosis maps to
func (h *DiagnosisHandler) Request(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	req, err := h.engine.Request(s)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, req)
}

// Recommend runs the full pipeline for the session
func (h *DiagnosisHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var body RecommendBody
	if !decodeJSON(w, r, &body, true) {
		return
	}
	if body.Sort != "" && !body.Sort.Valid() {
		WriteValidationError(w, "unknown sort mode", map[string]interface{}{"sort": string(body.Sort)})
		return
	}

	opts := engine.RecommendOptions{
		Sort: body.Sort,
		Metadata: audit.AuditMetadata{
			Source:    "api",
			RemoteIP:  r.RemoteAddr,
			UserAgent: r.UserAgent(),
		},
	}
	if body.Client != "" && h.favorites != nil {
		ids, err := h.favorites.List(r.Context(), body.Client)
		if err != nil {
			log.WithError(err).Warn("Failed to load favorites for rendering")
		}
		opts.Favorites = ids
	}

	result, err := h.engine.Recommend(r.Context(), s, opts)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// GetMode returns the selected search UI
func (h *DiagnosisHandler) GetMode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, ModeBody{Mode: s.Mode()})
}

// SetMode switches between detailed search and the diagnosis
func (h *DiagnosisHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var body ModeBody
	if !decodeJSON(w, r, &body, false) {
		return
	}
	if err := s.SetMode(body.Mode); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ModeBody{Mode: s.Mode()})
}

// Delete discards a session
func (h *DiagnosisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	h.sessions.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
