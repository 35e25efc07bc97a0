// Package adapter converts a finished diagnosis into the request body of
// the recommendation endpoint.
package adapter

import (
	"errors"

	"github.com/car-advisor/advisor/pkg/types"
)

// ErrIncompleteDiagnosis is returned when there is no usable diagnosis. The
// adapter never guesses a profile.
var ErrIncompleteDiagnosis = errors.New("diagnosis incomplete: restart the diagnosis")

const (
	experienceLevel        = "beginner"
	defaultPriceImportance = 0.3
	ratingScale            = 5.0
)

type budgetSetting struct {
	maxPrice        string
	priceImportance float64
}

type seatSetting struct {
	minSeats      string
	preferredSize string
}

var seatSettings = map[string]seatSetting{
	types.PassengersSmall:  {minSeats: "2", preferredSize: "small"},
	types.PassengersMedium: {minSeats: "4", preferredSize: "medium"},
	types.PassengersLarge:  {minSeats: "5", preferredSize: "large"},
}

// Adapter builds recommendation requests with one constant set
type Adapter struct {
	variant Variant
}

// New creates an adapter for variant
func New(variant Variant) *Adapter {
	return &Adapter{variant: variant}
}

// Variant returns the constant set in use
func (a *Adapter) Variant() Variant {
	return a.variant
}

// ToRequest maps result onto a request body
func (a *Adapter) ToRequest(result *types.ProfileResult) (types.RecommendationRequest, error) {
	if result == nil || result.SourceAnswers == nil || result.Type == "" {
		return types.RecommendationRequest{}, ErrIncompleteDiagnosis
	}

	answers := result.SourceAnswers
	b := newBuilder(result.Type, answers.Purpose)
	b.importances(answers)
	b.budget(a.budgetSetting(answers.Budget))
	b.seats(answers.Passengers)
	if f, ok := a.variant.filter(result.Type); ok {
		b.profileFilter(f)
	}

	return b.build(), nil
}

// ToRequest maps result with the default constant set
func ToRequest(result *types.ProfileResult) (types.RecommendationRequest, error) {
	return New(DefaultVariant()).ToRequest(result)
}

func (a *Adapter) budgetSetting(budget string) (budgetSetting, bool) {
	switch budget {
	case types.BudgetLow:
		return budgetSetting{maxPrice: "200", priceImportance: 0.8}, true
	case types.BudgetMedium:
		return budgetSetting{maxPrice: a.variant.MediumMaxPrice, priceImportance: 0.5}, true
	case types.BudgetHigh:
		return budgetSetting{maxPrice: "1000", priceImportance: 0.2}, true
	}
	return budgetSetting{}, false
}

// builder applies field defaults in one place and copies slices so the
// request never aliases the variant tables
type builder struct {
	req types.RecommendationRequest
}

func newBuilder(profile types.ProfileID, purpose string) *builder {
	return &builder{req: types.RecommendationRequest{
		UserProfile:     profile,
		Purpose:         purpose,
		ExperienceLevel: experienceLevel,
		PriceImportance: defaultPriceImportance,
	}}
}

func (b *builder) importances(answers *types.AnswerSet) {
	weight := func(key types.QuestionKey) float64 {
		return float64(answers.Rating(key)) / ratingScale
	}
	b.req.FuelEconomyImportance = weight(types.KeyFuelImportance)
	b.req.SafetyImportance = weight(types.KeySafetyImportance)
	b.req.DesignImportance = weight(types.KeyDesignImportance)
	b.req.SpaceImportance = weight(types.KeySpaceImportance)
	b.req.MaintenanceImportance = weight(types.KeyMaintenanceImportance)
}

func (b *builder) budget(s budgetSetting, ok bool) {
	if !ok {
		return
	}
	b.req.MaxPrice = s.maxPrice
	b.req.PriceImportance = s.priceImportance
}

func (b *builder) seats(passengers string) {
	s, ok := seatSettings[passengers]
	if !ok {
		return
	}
	b.req.MinSeats = s.minSeats
	b.req.PreferredSize = s.preferredSize
}

func (b *builder) profileFilter(f ProfileFilter) {
	if len(f.BodyTypes) > 0 {
		b.req.BodyTypes = append([]string(nil), f.BodyTypes...)
	}
	if len(f.FuelTypes) > 0 {
		b.req.FuelTypes = append([]string(nil), f.FuelTypes...)
	}
	b.req.MinFuelEconomy = f.MinFuelEconomy
}

func (b *builder) build() types.RecommendationRequest {
	return b.req
}
