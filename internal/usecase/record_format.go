package usecase

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/productsheet/backend/internal/domain"
)

// Units appended to values the model returned as bare numbers.
const (
	dimensionUnit = "mm"
	weightUnit    = "kg"
	powerUnit     = "W"
)

// coerceRecord maps a parsed JSON object onto the fixed record shape.
// Numbers are kept bare; withUnits adds units once grounding has run.
// It returns the keys it could not place, sorted.
func coerceRecord(fields map[string]any) (domain.ProductRecord, []string) {
	record := domain.NewProductRecord()
	var dropped []string

	for key, raw := range fields {
		switch key {
		case domain.FieldTechnicalSpecs:
			record.TechnicalSpecs = formatMapping(raw)
		case domain.FieldDimensions:
			record.Dimensions = formatMapping(raw)
		case domain.FieldFeatures:
			record.Features = formatList(raw)
		case domain.FieldCertifications:
			record.Certifications = formatList(raw)
		case domain.FieldWeight:
			record.Weight = formatScalar(raw)
		case domain.FieldPowerConsumption:
			record.PowerConsumption = formatScalar(raw)
		default:
			if !isScalarField(key) {
				dropped = append(dropped, key)
				continue
			}
			record.SetScalar(key, formatScalar(raw))
		}
	}

	sort.Strings(dropped)
	return record, dropped
}

func isScalarField(name string) bool {
	for _, f := range domain.ScalarFieldNames {
		if f == name {
			return true
		}
	}
	return false
}

// formatScalar renders a JSON value as a trimmed string.
func formatScalar(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		return strings.Join(formatList(v), ", ")
	default:
		return ""
	}
}

func formatMapping(raw any) map[string]string {
	out := map[string]string{}
	m, ok := raw.(map[string]any)
	if !ok {
		return out
	}
	for key, value := range m {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if s := formatScalar(value); s != "" {
			out[key] = s
		}
	}
	return out
}

// formatList accepts a JSON array or a comma-separated string.
func formatList(raw any) []string {
	out := []string{}
	switch v := raw.(type) {
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	case []any:
		for _, item := range v {
			if s := formatScalar(item); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := formatScalar(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// withUnits appends mm, kg and W to the dimension, weight and power values
// that fields holds as bare numbers and that are still present in record.
func withUnits(record domain.ProductRecord, fields map[string]any) domain.ProductRecord {
	out := record.Clone()
	if out.Weight != "" && isNumber(fields[domain.FieldWeight]) {
		out.Weight += weightUnit
	}
	if out.PowerConsumption != "" && isNumber(fields[domain.FieldPowerConsumption]) {
		out.PowerConsumption += powerUnit
	}

	dims, _ := fields[domain.FieldDimensions].(map[string]any)
	for key, raw := range dims {
		key = strings.TrimSpace(key)
		if value, ok := out.Dimensions[key]; ok && isNumber(raw) {
			out.Dimensions[key] = value + dimensionUnit
		}
	}
	return out
}

func isNumber(raw any) bool {
	switch raw.(type) {
	case json.Number, float64:
		return true
	}
	return false
}
