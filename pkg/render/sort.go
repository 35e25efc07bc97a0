package render

import (
	"sort"
	"strconv"
	"strings"

	"github.com/car-advisor/advisor/pkg/types"
)

// SortMode is one of the result page orderings
type SortMode string

const (
	SortRecommended SortMode = "recommended"
	SortPriceAsc    SortMode = "price-asc"
	SortPriceDesc   SortMode = "price-desc"
	SortFuelDesc    SortMode = "fuel-desc"
)

// Valid reports whether m is a known mode
func (m SortMode) Valid() bool {
	switch m {
	case SortRecommended, SortPriceAsc, SortPriceDesc, SortFuelDesc:
		return true
	}
	return false
}

// Sort orders cars in place. Unknown modes keep the input order.
func Sort(cars []types.CarRecord, mode SortMode) {
	var less func(a, b types.CarRecord) bool

	switch mode {
	case SortRecommended:
		less = func(a, b types.CarRecord) bool { return a.Score > b.Score }
	case SortPriceAsc:
		less = func(a, b types.CarRecord) bool {
			return rangeMin(a.PriceRange.String()) < rangeMin(b.PriceRange.String())
		}
	case SortPriceDesc:
		less = func(a, b types.CarRecord) bool {
			return rangeMax(a.PriceRange.String()) > rangeMax(b.PriceRange.String())
		}
	case SortFuelDesc:
		less = func(a, b types.CarRecord) bool {
			return rangeMax(a.FuelEconomy.String()) > rangeMax(b.FuelEconomy.String())
		}
	default:
		return
	}

	sort.SliceStable(cars, func(i, j int) bool { return less(cars[i], cars[j]) })
}

func rangeMin(s string) float64 {
	if s == "" {
		return 0
	}
	return leadingFloat(rangeSep.Split(s, -1)[0])
}

func rangeMax(s string) float64 {
	if s == "" {
		return 0
	}
	parts := rangeSep.Split(s, -1)
	lo := leadingFloat(parts[0])
	if len(parts) > 1 {
		if v := leadingFloat(parts[1]); v != 0 {
			return v
		}
	}
	return lo
}

// leadingFloat reads the numeric prefix of s, 0 when there is none
func leadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' || (c == '-' || c == '+') && end == 0 {
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return v
}
