package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// RecommendationRequest is the body accepted by the recommendation endpoint.
// Every optional field is declared here; the adapter decides which are set.
type RecommendationRequest struct {
	UserProfile     ProfileID `json:"user_profile"`
	Purpose         string    `json:"purpose,omitempty"`
	ExperienceLevel string    `json:"experience_level"`

	FuelEconomyImportance float64 `json:"fuel_economy_importance"`
	SafetyImportance      float64 `json:"safety_importance"`
	DesignImportance      float64 `json:"design_importance"`
	SpaceImportance       float64 `json:"space_importance"`
	MaintenanceImportance float64 `json:"maintenance_importance"`
	PriceImportance       float64 `json:"price_importance"`

	MaxPrice       string   `json:"max_price,omitempty"`
	MinSeats       string   `json:"min_seats,omitempty"`
	PreferredSize  string   `json:"preferred_size,omitempty"`
	MinFuelEconomy string   `json:"min_fuel_economy,omitempty"`
	BodyTypes      []string `json:"body_types,omitempty"`
	FuelTypes      []string `json:"fuel_types,omitempty"`
}

// RecommendResponse is the envelope returned by the recommendation endpoint
type RecommendResponse struct {
	Success     bool        `json:"success"`
	Cars        []CarRecord `json:"cars"`
	UserProfile string      `json:"user_profile,omitempty"`
	Error       string      `json:"error,omitempty"`
	TotalCount  int         `json:"total_count,omitempty"`
	Page        int         `json:"page,omitempty"`
	TotalPages  int         `json:"total_pages,omitempty"`
}

// CarRecord is one car as served by the recommendation and batch endpoints.
// Field names follow the catalog columns.
type CarRecord struct {
	ID               FlexString `json:"id"`
	Maker            string     `json:"メーカー"`
	Model            string     `json:"車種"`
	PriceRange       FlexString `json:"価格帯(万円)"`
	FuelEconomy      FlexString `json:"燃費(km/L)"`
	BodyType         string     `json:"ボディタイプ"`
	DriveType        string     `json:"駆動方式"`
	Seats            FlexString `json:"乗車定員"`
	SafetyEquipment  string     `json:"先進安全装備"`
	Score            float64    `json:"推薦スコア"`
	Reason           string     `json:"推薦理由"`
	YouTubeURL       string     `json:"youtube_url,omitempty"`
	YouTubeThumbnail string     `json:"youtube_thumbnail,omitempty"`
}

// FlexString decodes both JSON strings and numbers; the catalog mixes them
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the trimmed value
func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}
