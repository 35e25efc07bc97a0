package handlers

import (
	"net/http"

	"github.com/car-advisor/advisor/pkg/engine"
	"github.com/car-advisor/advisor/pkg/types"
)

// ScoreHandler scores a full answer set in one call
type ScoreHandler struct {
	engine *engine.Engine
}

// NewScoreHandler creates a stateless scoring handler
func NewScoreHandler(eng *engine.Engine) *ScoreHandler {
	return &ScoreHandler{engine: eng}
}

// Handle scores the posted answers and returns the result, the rules that
// fired and the request the result maps to
func (h *ScoreHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if !decodeJSON(w, r, &body, true) {
		return
	}

	var answers types.AnswerSet
	for k, v := range body {
		if err := answers.Set(types.QuestionKey(k), v); err != nil {
			WriteDomainError(w, err)
			return
		}
	}

	result, err := h.engine.Diagnose(&answers)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
