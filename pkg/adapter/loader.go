package adapter

import (
	"fmt"
	"os"

	"github.com/car-advisor/advisor/pkg/types"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	log "github.com/sirupsen/logrus"
)

// LoadVariant reads a constant set from an HCL file:
//
//	variant "hybrid" {
//	  medium_max_price = "500"
//
//	  profile "commuter" {
//	    body_types       = ["ハッチバック", "軽自動車", "セダン"]
//	    fuel_types       = ["(HEV)", "電気(BEV)", "レギュラー"]
//	    min_fuel_economy = "15"
//	  }
//	}
func LoadVariant(path string) (Variant, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Variant{}, fmt.Errorf("failed to read variant file: %w", err)
	}
	return ParseVariant(src, path)
}

// ParseVariant parses HCL source; filename is used in diagnostics only
func ParseVariant(src []byte, filename string) (Variant, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Variant{}, fmt.Errorf("parse errors: %s", diags.Error())
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return Variant{}, fmt.Errorf("unexpected body type")
	}

	var blocks []*hclsyntax.Block
	for _, block := range body.Blocks {
		if block.Type == "variant" {
			blocks = append(blocks, block)
		}
	}
	if len(blocks) != 1 {
		return Variant{}, fmt.Errorf("%s: expected exactly one variant block, found %d", filename, len(blocks))
	}

	v, err := parseVariantBlock(blocks[0])
	if err != nil {
		return Variant{}, fmt.Errorf("%s: %w", filename, err)
	}

	log.WithFields(log.Fields{
		"file":     filename,
		"variant":  v.Name,
		"profiles": len(v.Profiles),
	}).Info("Loaded adapter variant")
	return v, nil
}

func parseVariantBlock(block *hclsyntax.Block) (Variant, error) {
	if len(block.Labels) != 1 {
		return Variant{}, fmt.Errorf("variant block needs one label")
	}

	v := Variant{
		Name:     block.Labels[0],
		Profiles: make(map[types.ProfileID]ProfileFilter),
	}

	for name, attr := range block.Body.Attributes {
		switch name {
		case "medium_max_price":
			s, err := stringAttr(attr)
			if err != nil {
				return Variant{}, err
			}
			v.MediumMaxPrice = s
		default:
			return Variant{}, fmt.Errorf("unknown variant attribute %q", name)
		}
	}
	if v.MediumMaxPrice == "" {
		return Variant{}, fmt.Errorf("variant %q: medium_max_price is required", v.Name)
	}

	for _, nested := range block.Body.Blocks {
		if nested.Type != "profile" || len(nested.Labels) != 1 {
			return Variant{}, fmt.Errorf("unexpected block %q", nested.Type)
		}
		id := types.ProfileID(nested.Labels[0])
		if !id.Valid() {
			return Variant{}, fmt.Errorf("unknown profile %q", id)
		}
		if id == types.ProfileBalance {
			return Variant{}, fmt.Errorf("profile %q cannot carry filters", id)
		}

		f, err := parseProfileBlock(nested)
		if err != nil {
			return Variant{}, fmt.Errorf("profile %q: %w", id, err)
		}
		v.Profiles[id] = f
	}

	return v, nil
}

func parseProfileBlock(block *hclsyntax.Block) (ProfileFilter, error) {
	var f ProfileFilter
	for name, attr := range block.Body.Attributes {
		var err error
		switch name {
		case "body_types":
			f.BodyTypes, err = stringListAttr(attr)
		case "fuel_types":
			f.FuelTypes, err = stringListAttr(attr)
		case "min_fuel_economy":
			f.MinFuelEconomy, err = stringAttr(attr)
		default:
			err = fmt.Errorf("unknown attribute %q", name)
		}
		if err != nil {
			return ProfileFilter{}, err
		}
	}
	return f, nil
}

func attrValue(attr *hclsyntax.Attribute) (cty.Value, error) {
	val, diags := attr.Expr.Value(&hcl.EvalContext{})
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("%s: %s", attr.Name, diags.Error())
	}
	if val.IsNull() || !val.IsKnown() {
		return cty.NilVal, fmt.Errorf("%s: value must be known", attr.Name)
	}
	return val, nil
}

func stringAttr(attr *hclsyntax.Attribute) (string, error) {
	val, err := attrValue(attr)
	if err != nil {
		return "", err
	}
	switch val.Type() {
	case cty.String:
		return val.AsString(), nil
	case cty.Number:
		// accept max_price = 500 as well as "500"
		return val.AsBigFloat().Text('f', -1), nil
	}
	return "", fmt.Errorf("%s: expected string, got %s", attr.Name, val.Type().FriendlyName())
}

func stringListAttr(attr *hclsyntax.Attribute) ([]string, error) {
	val, err := attrValue(attr)
	if err != nil {
		return nil, err
	}
	if !val.Type().IsListType() && !val.Type().IsTupleType() {
		return nil, fmt.Errorf("%s: expected list, got %s", attr.Name, val.Type().FriendlyName())
	}

	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, el := it.Element()
		if el.Type() != cty.String || el.IsNull() {
			return nil, fmt.Errorf("%s: list elements must be strings", attr.Name)
		}
		out = append(out, el.AsString())
	}
	return out, nil
}
