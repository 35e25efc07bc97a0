package search

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	req, err := NewValidator().Validate(Request{MaxPrice: 300})
	require.NoError(t, err)
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, DefaultPerPage, req.PerPage)
	assert.Equal(t, float64(300), req.MaxPrice)
}

func TestValidateAcceptsFullForm(t *testing.T) {
	_, err := NewValidator().Validate(Request{
		MaxPrice:       500,
		MinFuelEconomy: 20,
		MinSeats:       5,
		BodyTypes:      []string{"SUV", " ミニバン "},
		FuelTypes:      []string{"(HEV)"},
		Page:           2,
		PerPage:        24,
	})
	assert.NoError(t, err)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"negative price", Request{MaxPrice: -1}, "max_price"},
		{"fuel too high", Request{MinFuelEconomy: 150}, "min_fuel_economy"},
		{"seats too many", Request{MinSeats: 11}, "min_seats"},
		{"negative seats", Request{MinSeats: -2}, "min_seats"},
		{"negative page", Request{Page: -1}, "page"},
		{"page size", Request{PerPage: 500}, "per_page"},
		{"blank body type", Request{BodyTypes: []string{"SUV", "  "}}, "body_types[1]"},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.req)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	_, err := NewValidator().Validate(Request{MaxPrice: -5, MinSeats: 20, PerPage: 101})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 3)
	assert.Equal(t, "must be at least 0", verr.Fields["max_price"])
	assert.Equal(t, "must be at most 10", verr.Fields["min_seats"])
}
