// Package search validates the detailed-search form
package search

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultPerPage is the page size when the form omits per_page
const DefaultPerPage = 12

// Request is the detailed-search form. Zero numeric filters mean "no limit".
type Request struct {
	MaxPrice       float64  `json:"max_price" validate:"gte=0"`
	MinFuelEconomy float64  `json:"min_fuel_economy" validate:"gte=0,lte=100"`
	MinSeats       int      `json:"min_seats" validate:"omitempty,min=1,max=10"`
	BodyTypes      []string `json:"body_types" validate:"omitempty,dive,required"`
	FuelTypes      []string `json:"fuel_types" validate:"omitempty,dive,required"`
	Page           int      `json:"page" validate:"min=1"`
	PerPage        int      `json:"per_page" validate:"min=1,max=100"`
}

// ValidationError carries one message per failing field
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid search: " + strings.Join(parts, "; ")
}

// Validator checks search requests
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a validator reporting JSON field names
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return &Validator{v: v}
}

// Normalize fills defaults for omitted paging fields
func Normalize(req Request) Request {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PerPage == 0 {
		req.PerPage = DefaultPerPage
	}
	req.BodyTypes = trimAll(req.BodyTypes)
	req.FuelTypes = trimAll(req.FuelTypes)
	return req
}

// Validate normalizes req and checks it
func (v *Validator) Validate(req Request) (Request, error) {
	req = Normalize(req)

	err := v.v.Struct(req)
	if err == nil {
		return req, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return req, fmt.Errorf("failed to validate search: %w", err)
	}

	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fieldName(fe)] = message(fe)
	}
	return req, out
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte", "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte", "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "required":
		return "must not be empty"
	}
	return fmt.Sprintf("failed %s check", fe.Tag())
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
