package domain

import (
	"encoding/json"
	"strings"
)

// Product record field names as they appear on the wire.
const (
	FieldProductName      = "product_name"
	FieldBrand            = "brand"
	FieldModelNumber      = "model_number"
	FieldCategory         = "category"
	FieldDescription      = "description"
	FieldPriceRange       = "price_range"
	FieldWeight           = "weight"
	FieldWarranty         = "warranty"
	FieldPowerConsumption = "power_consumption"
	FieldColor            = "color"
	FieldMaterial         = "material"
	FieldTechnicalSpecs   = "technical_specs"
	FieldDimensions       = "dimensions"
	FieldFeatures         = "features"
	FieldCertifications   = "certifications"
)

// ScalarFieldNames lists the string-valued fields in schema order.
var ScalarFieldNames = []string{
	FieldProductName,
	FieldBrand,
	FieldModelNumber,
	FieldCategory,
	FieldDescription,
	FieldPriceRange,
	FieldWeight,
	FieldWarranty,
	FieldPowerConsumption,
	FieldColor,
	FieldMaterial,
}

// ProductRecord is the canonical extraction output. Every instance carries the
// full field set: absent values are empty strings, empty maps or empty lists.
type ProductRecord struct {
	ProductName      string            `json:"product_name"`
	Brand            string            `json:"brand"`
	ModelNumber      string            `json:"model_number"`
	Category         string            `json:"category"`
	Description      string            `json:"description"`
	PriceRange       string            `json:"price_range"`
	Weight           string            `json:"weight"`
	Warranty         string            `json:"warranty"`
	PowerConsumption string            `json:"power_consumption"`
	Color            string            `json:"color"`
	Material         string            `json:"material"`
	TechnicalSpecs   map[string]string `json:"technical_specs"`
	Dimensions       map[string]string `json:"dimensions"`
	Features         []string          `json:"features"`
	Certifications   []string          `json:"certifications"`
}

// NewProductRecord returns the empty schema.
func NewProductRecord() ProductRecord {
	return ProductRecord{
		TechnicalSpecs: map[string]string{},
		Dimensions:     map[string]string{},
		Features:       []string{},
		Certifications: []string{},
	}
}

// Clone returns a deep copy with every collection initialised.
func (r ProductRecord) Clone() ProductRecord {
	out := r
	out.TechnicalSpecs = make(map[string]string, len(r.TechnicalSpecs))
	for k, v := range r.TechnicalSpecs {
		out.TechnicalSpecs[k] = v
	}
	out.Dimensions = make(map[string]string, len(r.Dimensions))
	for k, v := range r.Dimensions {
		out.Dimensions[k] = v
	}
	out.Features = append([]string{}, r.Features...)
	out.Certifications = append([]string{}, r.Certifications...)
	return out
}

// Scalar returns the value of a scalar field by wire name.
func (r *ProductRecord) Scalar(name string) string {
	if p := r.scalarRef(name); p != nil {
		return *p
	}
	return ""
}

// SetScalar sets a scalar field by wire name. Unknown names are ignored.
func (r *ProductRecord) SetScalar(name, value string) {
	if p := r.scalarRef(name); p != nil {
		*p = value
	}
}

func (r *ProductRecord) scalarRef(name string) *string {
	switch name {
	case FieldProductName:
		return &r.ProductName
	case FieldBrand:
		return &r.Brand
	case FieldModelNumber:
		return &r.ModelNumber
	case FieldCategory:
		return &r.Category
	case FieldDescription:
		return &r.Description
	case FieldPriceRange:
		return &r.PriceRange
	case FieldWeight:
		return &r.Weight
	case FieldWarranty:
		return &r.Warranty
	case FieldPowerConsumption:
		return &r.PowerConsumption
	case FieldColor:
		return &r.Color
	case FieldMaterial:
		return &r.Material
	}
	return nil
}

// IsEmpty reports whether no field carries content.
func (r ProductRecord) IsEmpty() bool {
	for _, name := range ScalarFieldNames {
		if strings.TrimSpace(r.Scalar(name)) != "" {
			return false
		}
	}
	return len(r.TechnicalSpecs) == 0 && len(r.Dimensions) == 0 &&
		len(r.Features) == 0 && len(r.Certifications) == 0
}

// FilledFields counts fields with content; maps and lists count their members.
func (r ProductRecord) FilledFields() int {
	n := 0
	for _, name := range ScalarFieldNames {
		if strings.TrimSpace(r.Scalar(name)) != "" {
			n++
		}
	}
	return n + len(r.TechnicalSpecs) + len(r.Dimensions) + len(r.Features) + len(r.Certifications)
}

// MarshalJSON always emits the complete schema, never null collections.
func (r ProductRecord) MarshalJSON() ([]byte, error) {
	type plain ProductRecord
	return json.Marshal(plain(r.Clone()))
}

// UnmarshalJSON fills the full schema even when the payload is partial.
func (r *ProductRecord) UnmarshalJSON(data []byte) error {
	type plain ProductRecord
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ProductRecord(p).Clone()
	return nil
}

// Segment is a contiguous slice of the source text. Offsets count runes and
// Overlap is the number of leading runes shared with the previous segment.
type Segment struct {
	Index   int    `json:"index"`
	Text    string `json:"text"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Overlap int    `json:"overlap"`
}
