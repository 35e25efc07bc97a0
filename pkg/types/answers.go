package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// QuestionKey names a wizard question
type QuestionKey string

const (
	KeyPurpose    QuestionKey = "purpose"
	KeyBudget     QuestionKey = "budget"
	KeyPassengers QuestionKey = "passengers"

	KeyFuelImportance        QuestionKey = "fuel_importance"
	KeySafetyImportance      QuestionKey = "safety_importance"
	KeyDesignImportance      QuestionKey = "design_importance"
	KeySpaceImportance       QuestionKey = "space_importance"
	KeyMaintenanceImportance QuestionKey = "maintenance_importance"
)

// FactKeys are required to leave step 1
var FactKeys = []QuestionKey{KeyPurpose, KeyBudget, KeyPassengers}

// PreferenceKeys are required to leave step 2
var PreferenceKeys = []QuestionKey{
	KeyFuelImportance,
	KeySafetyImportance,
	KeyDesignImportance,
	KeySpaceImportance,
	KeyMaintenanceImportance,
}

const (
	PurposeFamily   = "family"
	PurposeCommute  = "commute"
	PurposeLeisure  = "leisure"
	PurposeBusiness = "business"

	BudgetLow    = "low"
	BudgetMedium = "medium"
	BudgetHigh   = "high"

	PassengersSmall  = "1-2"
	PassengersMedium = "3-4"
	PassengersLarge  = "5+"

	MinRating     = 1
	MaxRating     = 5
	NeutralRating = 3
)

var factDomains = map[QuestionKey][]string{
	KeyPurpose:    {PurposeFamily, PurposeCommute, PurposeLeisure, PurposeBusiness},
	KeyBudget:     {BudgetLow, BudgetMedium, BudgetHigh},
	KeyPassengers: {PassengersSmall, PassengersMedium, PassengersLarge},
}

// ErrInvalidAnswer is returned for unknown keys or out-of-domain values
var ErrInvalidAnswer = errors.New("invalid answer")

// IsFact reports whether k is a step-1 question
func (k QuestionKey) IsFact() bool {
	_, ok := factDomains[k]
	return ok
}

// IsPreference reports whether k is a step-2 rating
func (k QuestionKey) IsPreference() bool {
	for _, p := range PreferenceKeys {
		if p == k {
			return true
		}
	}
	return false
}

// AnswerSet holds the answers collected by the wizard. Empty facts and
// zero ratings mean "not answered".
type AnswerSet struct {
	Purpose    string `json:"purpose,omitempty"`
	Budget     string `json:"budget,omitempty"`
	Passengers string `json:"passengers,omitempty"`

	FuelImportance        int `json:"fuel_importance,omitempty"`
	SafetyImportance      int `json:"safety_importance,omitempty"`
	DesignImportance      int `json:"design_importance,omitempty"`
	SpaceImportance       int `json:"space_importance,omitempty"`
	MaintenanceImportance int `json:"maintenance_importance,omitempty"`
}

// Fact returns the categorical answer for a fact key
func (a *AnswerSet) Fact(key QuestionKey) string {
	switch key {
	case KeyPurpose:
		return a.Purpose
	case KeyBudget:
		return a.Budget
	case KeyPassengers:
		return a.Passengers
	}
	return ""
}

func (a *AnswerSet) ratingField(key QuestionKey) *int {
	switch key {
	case KeyFuelImportance:
		return &a.FuelImportance
	case KeySafetyImportance:
		return &a.SafetyImportance
	case KeyDesignImportance:
		return &a.DesignImportance
	case KeySpaceImportance:
		return &a.SpaceImportance
	case KeyMaintenanceImportance:
		return &a.MaintenanceImportance
	}
	return nil
}

// Rating returns the 1-5 rating for key, or NeutralRating when unanswered
func (a *AnswerSet) Rating(key QuestionKey) int {
	field := a.ratingField(key)
	if field == nil || *field == 0 {
		return NeutralRating
	}
	return *field
}

// Has reports whether key has been answered
func (a *AnswerSet) Has(key QuestionKey) bool {
	if key.IsFact() {
		return a.Fact(key) != ""
	}
	if field := a.ratingField(key); field != nil {
		return *field != 0
	}
	return false
}

// Missing returns the keys from required that have no answer, in order
func (a *AnswerSet) Missing(required []QuestionKey) []QuestionKey {
	var missing []QuestionKey
	for _, key := range required {
		if !a.Has(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

// Set stores a raw answer. Ratings accept ints, floats and numeric strings,
// matching what radio inputs and JSON bodies deliver.
func (a *AnswerSet) Set(key QuestionKey, value interface{}) error {
	if domain, ok := factDomains[key]; ok {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s must be a string", ErrInvalidAnswer, key)
		}
		s = strings.TrimSpace(s)
		for _, allowed := range domain {
			if s == allowed {
				a.setFact(key, s)
				return nil
			}
		}
		return fmt.Errorf("%w: %s=%q not in %v", ErrInvalidAnswer, key, s, domain)
	}

	field := a.ratingField(key)
	if field == nil {
		return fmt.Errorf("%w: unknown question %q", ErrInvalidAnswer, key)
	}

	rating, err := toRating(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidAnswer, key, err)
	}
	*field = rating
	return nil
}

func (a *AnswerSet) setFact(key QuestionKey, value string) {
	switch key {
	case KeyPurpose:
		a.Purpose = value
	case KeyBudget:
		a.Budget = value
	case KeyPassengers:
		a.Passengers = value
	}
}

func toRating(value interface{}) (int, error) {
	var n int
	switch v := value.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("rating %v is not an integer", v)
		}
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("rating %q is not a number", v)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("unsupported rating type %T", value)
	}

	if n < MinRating || n > MaxRating {
		return 0, fmt.Errorf("rating %d outside %d-%d", n, MinRating, MaxRating)
	}
	return n, nil
}

// Clone returns an independent copy
func (a *AnswerSet) Clone() *AnswerSet {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
