package render

import (
	"sort"

	"github.com/productsheet/backend/internal/domain"
)

const untitled = "Fiche produit"

// row is one labelled value of the sheet
type row struct {
	Label string
	Value string
}

// sheet is the presentation view of a ProductRecord shared by the HTML and
// PDF renderers. Empty values are left out.
type sheet struct {
	Title          string
	Description    string
	Identity       []row
	Specs          []row
	Dimensions     []row
	Features       []string
	Certifications []string
}

var identityLabels = []struct {
	field string
	label string
}{
	{domain.FieldBrand, "Marque"},
	{domain.FieldModelNumber, "Modèle"},
	{domain.FieldCategory, "Catégorie"},
	{domain.FieldPriceRange, "Prix"},
	{domain.FieldWeight, "Poids"},
	{domain.FieldWarranty, "Garantie"},
	{domain.FieldPowerConsumption, "Consommation"},
	{domain.FieldColor, "Couleur"},
	{domain.FieldMaterial, "Matériau"},
}

func newSheet(record domain.ProductRecord) sheet {
	s := sheet{
		Title:          record.ProductName,
		Description:    record.Description,
		Specs:          sortedRows(record.TechnicalSpecs),
		Dimensions:     sortedRows(record.Dimensions),
		Features:       record.Features,
		Certifications: record.Certifications,
	}
	if s.Title == "" {
		s.Title = untitled
	}

	for _, l := range identityLabels {
		if v := record.Scalar(l.field); v != "" {
			s.Identity = append(s.Identity, row{Label: l.label, Value: v})
		}
	}
	return s
}

func sortedRows(m map[string]string) []row {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	rows := make([]row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, row{Label: k, Value: m[k]})
	}
	return rows
}
