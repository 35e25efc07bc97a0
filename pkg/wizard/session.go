// Package wizard drives the three-step hybrid diagnosis: facts,
// preferences, result.
package wizard

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/car-advisor/advisor/pkg/scoring"
	"github.com/car-advisor/advisor/pkg/types"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrIncomplete is wrapped by IncompleteStepError
	ErrIncomplete = errors.New("step incomplete")

	// ErrNoNextStep is returned when advancing from the result step
	ErrNoNextStep = errors.New("already at the last step")

	// ErrRequestInFlight is returned while a recommendation call is outstanding
	ErrRequestInFlight = errors.New("recommendation request already in flight")
)

// IncompleteStepError lists the unanswered questions of a step
type IncompleteStepError struct {
	Step    types.Step
	Missing []types.QuestionKey
}

func (e *IncompleteStepError) Error() string {
	keys := make([]string, len(e.Missing))
	for i, k := range e.Missing {
		keys[i] = string(k)
	}
	return fmt.Sprintf("step %d incomplete: missing %s", e.Step, strings.Join(keys, ", "))
}

func (e *IncompleteStepError) Unwrap() error { return ErrIncomplete }

// requiredKeys lists the questions each step must have answered before
// moving forward. The result step has none.
var requiredKeys = map[types.Step][]types.QuestionKey{
	types.StepFacts:       types.FactKeys,
	types.StepPreferences: types.PreferenceKeys,
}

// Progress describes the navigation state shown above the wizard
type Progress struct {
	Step         types.Step `json:"step"`
	TotalSteps   int        `json:"total_steps"`
	Percent      float64    `json:"percent"`
	Title        string     `json:"title"`
	CanGoBack    bool       `json:"can_go_back"`
	CanGoForward bool       `json:"can_go_forward"`
}

// Snapshot is an immutable copy of a session
type Snapshot struct {
	ID       string               `json:"id"`
	State    types.WizardState    `json:"state"`
	Result   *types.ProfileResult `json:"result,omitempty"`
	Progress Progress             `json:"progress"`
	InFlight bool                 `json:"in_flight"`
	Mode     types.SearchMode     `json:"mode"`
}

// Session is one diagnosis in progress. All methods are safe for
// concurrent use.
type Session struct {
	id string

	mu       sync.Mutex
	state    types.WizardState
	result   *types.ProfileResult
	inFlight bool
	mode     types.SearchMode
}

// NewSession starts a diagnosis at the facts step
func NewSession(id string) *Session {
	return &Session{
		id:    id,
		state: types.WizardState{CurrentStep: types.StepFacts},
		mode:  types.SearchModeDetailed,
	}
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Answer records one answer. Answers accumulate across steps.
func (s *Session) Answer(key types.QuestionKey, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.Answers.Set(key, value); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"session": s.id,
		"key":     key,
		"value":   value,
	}).Debug("Answer recorded")
	return nil
}

// AnswerAll records several answers; it stops at the first invalid one
func (s *Session) AnswerAll(answers map[types.QuestionKey]interface{}) error {
	// validate against a copy so a bad entry leaves the session untouched
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Answers
	for _, key := range orderedKeys(answers) {
		if err := next.Set(key, answers[key]); err != nil {
			return err
		}
	}
	s.state.Answers = next
	return nil
}

// Next advances one step. Leaving the preferences step scores the answers
// and replaces any previous result.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return ErrRequestInFlight
	}

	current := s.state.CurrentStep
	if current >= types.StepResult {
		return ErrNoNextStep
	}

	if missing := s.state.Answers.Missing(requiredKeys[current]); len(missing) > 0 {
		log.WithFields(log.Fields{
			"session": s.id,
			"step":    current,
			"missing": missing,
		}).Info("Step advance rejected")
		return &IncompleteStepError{Step: current, Missing: missing}
	}

	if current == types.StepPreferences {
		s.result = scoring.Score(&s.state.Answers)
		log.WithFields(log.Fields{
			"session": s.id,
			"profile": s.result.Type,
			"score":   s.result.Score,
		}).Info("Diagnosis computed")
	}

	s.state.CurrentStep = current + 1
	return nil
}

// Back moves one step backwards without touching answers. On the first
// step it does nothing.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return ErrRequestInFlight
	}
	if s.state.CurrentStep > types.StepFacts {
		s.state.CurrentStep--
	}
	return nil
}

// Reset returns to the facts step and forgets answers and result
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return ErrRequestInFlight
	}
	s.state = types.WizardState{CurrentStep: types.StepFacts}
	s.result = nil

	log.WithField("session", s.id).Info("Diagnosis reset")
	return nil
}

// Result returns the current diagnosis, or nil before step 3 was reached
func (s *Session) Result() *types.ProfileResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Step returns the current step
func (s *Session) Step() types.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentStep
}

// StepComplete reports whether the current step may be left forwards
func (s *Session) StepComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepCompleteLocked()
}

func (s *Session) stepCompleteLocked() bool {
	return len(s.state.Answers.Missing(requiredKeys[s.state.CurrentStep])) == 0
}

// Progress returns navigation state for the current step
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *Session) progressLocked() Progress {
	step := s.state.CurrentStep
	return Progress{
		Step:         step,
		TotalSteps:   types.TotalSteps,
		Percent:      float64(step) / float64(types.TotalSteps) * 100,
		Title:        step.Title(),
		CanGoBack:    step > types.StepFacts && !s.inFlight,
		CanGoForward: step < types.StepResult && !s.inFlight && s.stepCompleteLocked(),
	}
}

// BeginRequest marks a recommendation call as outstanding
func (s *Session) BeginRequest() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return ErrRequestInFlight
	}
	s.inFlight = true
	return nil
}

// EndRequest clears the outstanding call marker
func (s *Session) EndRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

// SetMode records which search UI the browser shows
func (s *Session) SetMode(mode types.SearchMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: search mode %q", types.ErrInvalidAnswer, mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	return nil
}

// Mode returns the recorded search mode
func (s *Session) Mode() types.SearchMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Snapshot returns a consistent copy of the session
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:       s.id,
		State:    s.state,
		Result:   s.result,
		Progress: s.progressLocked(),
		InFlight: s.inFlight,
		Mode:     s.mode,
	}
}

// orderedKeys returns facts first, then ratings, then unknown keys so
// errors are reported in question order.
func orderedKeys(answers map[types.QuestionKey]interface{}) []types.QuestionKey {
	keys := make([]types.QuestionKey, 0, len(answers))
	seen := make(map[types.QuestionKey]bool, len(answers))
	for _, k := range append(append([]types.QuestionKey{}, types.FactKeys...), types.PreferenceKeys...) {
		if _, ok := answers[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	for k := range answers {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	return keys
}
