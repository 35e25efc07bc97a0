// Package render turns recommendation results into display cards
package render

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/car-advisor/advisor/pkg/types"
)

// Unknown is shown for attributes the catalog does not carry
const Unknown = "未定"

var rangeSep = regexp.MustCompile(`[~～]`)

// Card is the display model of one car
type Card struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	BodyType    string  `json:"body_type"`
	DriveType   string  `json:"drive_type"`
	Price       string  `json:"price"`
	FuelEconomy string  `json:"fuel_economy"`
	Safety      string  `json:"safety"`
	Seats       string  `json:"seats,omitempty"`
	Score       float64 `json:"score"`
	ShowScore   bool    `json:"show_score"`
	Reason      string  `json:"reason,omitempty"`
	DetailURL   string  `json:"detail_url"`
	ReviewURL   string  `json:"review_url,omitempty"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Favorite    bool    `json:"favorite"`
}

// Cards renders cars in the given order. favorites may be nil.
func Cards(cars []types.CarRecord, favorites map[string]bool) []Card {
	cards := make([]Card, 0, len(cars))
	for _, car := range cars {
		cards = append(cards, card(car, favorites))
	}
	return cards
}

func card(car types.CarRecord, favorites map[string]bool) Card {
	id := car.ID.String()
	c := Card{
		ID:          id,
		Title:       strings.TrimSpace(car.Maker + " " + car.Model),
		BodyType:    orUnknown(car.BodyType),
		DriveType:   orUnknown(car.DriveType),
		Price:       FormatPrice(car.PriceRange.String()),
		FuelEconomy: orUnknown(car.FuelEconomy.String()),
		Safety:      orUnknown(car.SafetyEquipment),
		Seats:       car.Seats.String(),
		Score:       car.Score,
		ShowScore:   car.Score > 0,
		Reason:      car.Reason,
		DetailURL:   "/car/" + id,
		Thumbnail:   car.YouTubeThumbnail,
		Favorite:    favorites[id],
	}
	if car.YouTubeURL != "" || car.YouTubeThumbnail != "" {
		c.ReviewURL = "/car/" + id + "?tab=reviews"
	}
	return c
}

// FormatPrice normalizes a price range to 万円. Parts given in yen
// (>= 100000) are divided by 10000; unparseable parts pass through.
func FormatPrice(raw string) string {
	if raw == "" {
		return Unknown
	}

	parts := rangeSep.Split(raw, -1)
	for i, part := range parts {
		v, ok := parseNumber(part)
		if !ok {
			continue
		}
		if v >= 100000 {
			v /= 10000
		}
		parts[i] = formatNumber(v)
	}
	return strings.Join(parts, "～") + "万円"
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "万円")
	s = strings.TrimSuffix(s, "円")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// formatNumber groups thousands and keeps at most three decimals
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString(frac)
	return b.String()
}
