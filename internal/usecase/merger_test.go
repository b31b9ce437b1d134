package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/productsheet/backend/internal/domain"
)

func recordWith(fn func(r *domain.ProductRecord)) domain.ProductRecord {
	r := domain.NewProductRecord()
	fn(&r)
	return r
}

func TestResultMerger_EmptyAndSingle(t *testing.T) {
	merger := NewResultMerger()

	assert.Equal(t, domain.NewProductRecord(), merger.Merge(nil))

	single := recordWith(func(r *domain.ProductRecord) {
		r.ProductName = "XC500"
		r.Features = []string{"b", "a"}
	})
	got := merger.Merge([]domain.ProductRecord{single})
	assert.Equal(t, single, got)

	got.Features[0] = "changed"
	assert.Equal(t, "b", single.Features[0])
}

func TestResultMerger_LongestWinsRegardlessOfOrder(t *testing.T) {
	a := recordWith(func(r *domain.ProductRecord) { r.ProductName = "A" })
	ab := recordWith(func(r *domain.ProductRecord) { r.ProductName = "AB" })

	merger := NewResultMerger()

	assert.Equal(t, "AB", merger.Merge([]domain.ProductRecord{a, ab}).ProductName)
	assert.Equal(t, "AB", merger.Merge([]domain.ProductRecord{ab, a}).ProductName)
}

func TestResultMerger_TieGoesToFirstSeen(t *testing.T) {
	x := recordWith(func(r *domain.ProductRecord) {
		r.Brand = "Beko"
		r.TechnicalSpecs["capacity"] = "500L"
	})
	y := recordWith(func(r *domain.ProductRecord) {
		r.Brand = "Miel"
		r.TechnicalSpecs["capacity"] = "480L"
	})

	merger := NewResultMerger()

	xy := merger.Merge([]domain.ProductRecord{x, y})
	yx := merger.Merge([]domain.ProductRecord{y, x})

	assert.Equal(t, "Beko", xy.Brand)
	assert.Equal(t, "500L", xy.TechnicalSpecs["capacity"])
	assert.Equal(t, "Miel", yx.Brand)
	assert.Equal(t, "480L", yx.TechnicalSpecs["capacity"])
}

func TestResultMerger_EmptyNeverOverwrites(t *testing.T) {
	filled := recordWith(func(r *domain.ProductRecord) {
		r.ProductName = "XC500"
		r.Dimensions["hauteur"] = "1850mm"
	})
	blank := recordWith(func(r *domain.ProductRecord) {
		r.ProductName = "   "
		r.Dimensions["hauteur"] = ""
	})

	got := NewResultMerger().Merge([]domain.ProductRecord{filled, blank})

	assert.Equal(t, "XC500", got.ProductName)
	assert.Equal(t, "1850mm", got.Dimensions["hauteur"])
}

func TestResultMerger_MappingsPerKeyAndListUnion(t *testing.T) {
	first := recordWith(func(r *domain.ProductRecord) {
		r.TechnicalSpecs["capacity"] = "500L"
		r.TechnicalSpecs["voltage"] = "230V"
		r.Features = []string{"No Frost", "Inverter"}
		r.Certifications = []string{"CE"}
	})
	second := recordWith(func(r *domain.ProductRecord) {
		r.TechnicalSpecs["capacity"] = "500 litres"
		r.TechnicalSpecs["frequency"] = "50Hz"
		r.Features = []string{"Inverter", "", "Alarme porte"}
		r.Certifications = []string{"CE", "NF"}
	})

	got := NewResultMerger().Merge([]domain.ProductRecord{first, second})

	assert.Equal(t, map[string]string{
		"capacity":  "500 litres",
		"voltage":   "230V",
		"frequency": "50Hz",
	}, got.TechnicalSpecs)
	assert.ElementsMatch(t, []string{"No Frost", "Inverter", "Alarme porte"}, got.Features)
	assert.ElementsMatch(t, []string{"CE", "NF"}, got.Certifications)
}

func TestResultMerger_CompleteSchema(t *testing.T) {
	got := NewResultMerger().Merge([]domain.ProductRecord{{}, {}})

	assert.NotNil(t, got.TechnicalSpecs)
	assert.NotNil(t, got.Dimensions)
	assert.NotNil(t, got.Features)
	assert.NotNil(t, got.Certifications)
	assert.True(t, got.IsEmpty())
}
