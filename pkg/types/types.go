package types

// ProfileID identifies one of the five diagnosis archetypes
type ProfileID string

const (
	ProfileFamily   ProfileID = "family"
	ProfileCommuter ProfileID = "commuter"
	ProfileLuxury   ProfileID = "luxury"
	ProfileEco      ProfileID = "eco"
	ProfileBalance  ProfileID = "balance"
)

// ProfileOrder is the fixed enumeration order. Score ties resolve to the
// earlier entry.
var ProfileOrder = []ProfileID{
	ProfileFamily,
	ProfileCommuter,
	ProfileLuxury,
	ProfileEco,
	ProfileBalance,
}

// Valid reports whether id is one of the five archetypes
func (id ProfileID) Valid() bool {
	for _, p := range ProfileOrder {
		if p == id {
			return true
		}
	}
	return false
}

// ProfileScores accumulates points per archetype
type ProfileScores map[ProfileID]int

// NewProfileScores returns a table with every archetype at zero
func NewProfileScores() ProfileScores {
	scores := make(ProfileScores, len(ProfileOrder))
	for _, id := range ProfileOrder {
		scores[id] = 0
	}
	return scores
}

// Clone returns an independent copy
func (s ProfileScores) Clone() ProfileScores {
	out := make(ProfileScores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ProfileResult is the outcome of one completed diagnosis
type ProfileResult struct {
	Type          ProfileID     `json:"type"`
	Score         int           `json:"score"`
	AllScores     ProfileScores `json:"all_scores"`
	SourceAnswers *AnswerSet    `json:"source_answers"`
	FellBack      bool          `json:"fell_back"`
}

// Step is a wizard position
type Step int

const (
	StepFacts       Step = 1
	StepPreferences Step = 2
	StepResult      Step = 3

	TotalSteps = 3
)

// Title returns the heading shown for the step
func (s Step) Title() string {
	switch s {
	case StepFacts:
		return "基本情報"
	case StepPreferences:
		return "重視ポイント"
	case StepResult:
		return "診断結果"
	default:
		return "診断中"
	}
}

// WizardState is the mutable part of a diagnosis session
type WizardState struct {
	CurrentStep Step      `json:"current_step"`
	Answers     AnswerSet `json:"answers"`
}

// SearchMode selects which search UI a browser session shows
type SearchMode string

const (
	SearchModeDetailed SearchMode = "detailed"
	SearchModeHybrid   SearchMode = "hybrid"
)

// Valid reports whether m is a known search mode
func (m SearchMode) Valid() bool {
	return m == SearchModeDetailed || m == SearchModeHybrid
}
