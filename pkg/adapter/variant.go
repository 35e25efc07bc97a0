package adapter

import "github.com/car-advisor/advisor/pkg/types"

// ProfileFilter narrows the search for one archetype
type ProfileFilter struct {
	BodyTypes      []string
	FuelTypes      []string
	MinFuelEconomy string
}

// Variant is one constant set for the request mapping. Two sets exist in
// the field: the hybrid wizard and the older quick diagnosis.
type Variant struct {
	Name           string
	MediumMaxPrice string
	Profiles       map[types.ProfileID]ProfileFilter
}

// DefaultVariant is the hybrid wizard constant set
func DefaultVariant() Variant {
	return Variant{
		Name:           "hybrid",
		MediumMaxPrice: "500",
		Profiles: map[types.ProfileID]ProfileFilter{
			types.ProfileFamily: {
				BodyTypes: []string{"ミニバン", "SUV", "ハッチバック"},
				FuelTypes: []string{"(HEV)", "レギュラー", "ハイオク"},
			},
			types.ProfileCommuter: {
				BodyTypes:      []string{"ハッチバック", "軽自動車", "セダン"},
				FuelTypes:      []string{"(HEV)", "電気(BEV)", "レギュラー"},
				MinFuelEconomy: "15",
			},
			types.ProfileLuxury: {
				BodyTypes: []string{"セダン", "SUV", "オープンカー"},
				FuelTypes: []string{"ハイオク", "(HEV)", "(PHEV)", "ディーゼル"},
			},
			types.ProfileEco: {
				FuelTypes:      []string{"(HEV)", "電気(BEV)", "(PHEV)", "水素"},
				MinFuelEconomy: "20",
			},
		},
	}
}

// LegacyVariant is the quick diagnosis constant set. It differs from the
// hybrid set only in the lower medium ceiling.
func LegacyVariant() Variant {
	v := DefaultVariant()
	v.Name = "legacy"
	v.MediumMaxPrice = "400"
	return v
}

func (v Variant) filter(id types.ProfileID) (ProfileFilter, bool) {
	// balance never narrows the search
	if id == types.ProfileBalance {
		return ProfileFilter{}, false
	}
	f, ok := v.Profiles[id]
	return f, ok
}
