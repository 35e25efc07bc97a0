// Package scoring maps a diagnosis answer set onto one of the five
// archetypes with fixed additive point tables.
package scoring

import (
	"strconv"

	"github.com/car-advisor/advisor/pkg/types"
)

// FallbackThreshold is the minimum winning score accepted as-is
const FallbackThreshold = 40

const (
	highRating = 4
	lowRating  = 2
)

// Award grants points to one profile
type Award struct {
	Profile types.ProfileID
	Points  int
}

// ratingRule awards points when a rating is >= 4 (High) or <= 2 (Low)
type ratingRule struct {
	Key  types.QuestionKey
	High []Award
	Low  []Award
}

var factRules = map[types.QuestionKey]map[string][]Award{
	types.KeyPurpose: {
		types.PurposeFamily:   {{types.ProfileFamily, 40}, {types.ProfileBalance, 20}},
		types.PurposeCommute:  {{types.ProfileCommuter, 40}, {types.ProfileEco, 20}},
		types.PurposeLeisure:  {{types.ProfileLuxury, 25}, {types.ProfileBalance, 15}},
		types.PurposeBusiness: {{types.ProfileLuxury, 30}, {types.ProfileBalance, 20}},
	},
	types.KeyBudget: {
		types.BudgetLow:    {{types.ProfileCommuter, 30}, {types.ProfileEco, 20}},
		types.BudgetMedium: {{types.ProfileBalance, 30}, {types.ProfileFamily, 20}},
		types.BudgetHigh:   {{types.ProfileLuxury, 40}},
	},
	types.KeyPassengers: {
		types.PassengersSmall:  {{types.ProfileCommuter, 20}, {types.ProfileLuxury, 15}},
		types.PassengersMedium: {{types.ProfileBalance, 25}, {types.ProfileFamily, 20}},
		types.PassengersLarge:  {{types.ProfileFamily, 40}},
	},
}

var ratingRules = []ratingRule{
	{
		Key:  types.KeyFuelImportance,
		High: []Award{{types.ProfileEco, 25}, {types.ProfileCommuter, 20}},
		Low:  []Award{{types.ProfileLuxury, 10}},
	},
	{
		Key:  types.KeySafetyImportance,
		High: []Award{{types.ProfileFamily, 25}, {types.ProfileBalance, 15}},
	},
	{
		Key:  types.KeyDesignImportance,
		High: []Award{{types.ProfileLuxury, 30}},
		Low:  []Award{{types.ProfileCommuter, 15}},
	},
	{
		Key:  types.KeySpaceImportance,
		High: []Award{{types.ProfileFamily, 25}},
		Low:  []Award{{types.ProfileCommuter, 15}, {types.ProfileLuxury, 10}},
	},
	{
		Key:  types.KeyMaintenanceImportance,
		High: []Award{{types.ProfileCommuter, 25}, {types.ProfileEco, 15}},
		Low:  []Award{{types.ProfileLuxury, 15}},
	},
}

// Contribution records one rule that fired during scoring
type Contribution struct {
	Key     types.QuestionKey `json:"key"`
	Value   string            `json:"value"`
	Profile types.ProfileID   `json:"profile"`
	Points  int               `json:"points"`
}

// Score runs the diagnosis over answers. It never fails: unknown or missing
// facts add nothing and missing ratings count as neutral.
func Score(answers *types.AnswerSet) *types.ProfileResult {
	if answers == nil {
		answers = &types.AnswerSet{}
	}

	scores := types.NewProfileScores()
	for _, c := range Explain(answers) {
		scores[c.Profile] += c.Points
	}

	top := Winner(scores)
	final := top
	if scores[top] < FallbackThreshold {
		final = types.ProfileBalance
	}

	return &types.ProfileResult{
		Type:          final,
		Score:         scores[final],
		AllScores:     scores,
		SourceAnswers: answers.Clone(),
		FellBack:      final != top,
	}
}

// Winner returns the profile with the strictly greatest score; ties go to
// the earlier profile in enumeration order.
func Winner(scores types.ProfileScores) types.ProfileID {
	best := types.ProfileOrder[0]
	for _, id := range types.ProfileOrder[1:] {
		if scores[id] > scores[best] {
			best = id
		}
	}
	return best
}

// Explain lists every rule that fires for answers, facts first then
// ratings, in table order.
func Explain(answers *types.AnswerSet) []Contribution {
	if answers == nil {
		return nil
	}

	var out []Contribution
	for _, key := range types.FactKeys {
		value := answers.Fact(key)
		for _, award := range factRules[key][value] {
			out = append(out, Contribution{Key: key, Value: value, Profile: award.Profile, Points: award.Points})
		}
	}

	for _, rule := range ratingRules {
		rating := answers.Rating(rule.Key)
		var awards []Award
		switch {
		case rating >= highRating:
			awards = rule.High
		case rating <= lowRating:
			awards = rule.Low
		}
		for _, award := range awards {
			out = append(out, Contribution{
				Key:     rule.Key,
				Value:   strconv.Itoa(rating),
				Profile: award.Profile,
				Points:  award.Points,
			})
		}
	}

	return out
}
