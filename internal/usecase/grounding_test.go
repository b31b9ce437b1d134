package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productsheet/backend/internal/domain"
)

func newTestValidator() *GroundingValidator {
	return NewGroundingValidator(GroundingConfig{
		MinLength:         3,
		Ratio:             0.7,
		SuspiciousPhrases: []string{"lorem ipsum", "produit exemple"},
		ForeignMarkers:    []string{"stainless steel", "with"},
	})
}

func TestGroundingValidator_ScalarOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		value   string
		outcome domain.VerdictOutcome
		foreign bool
	}{
		{
			name:    "fabricated capacity is cleared",
			source:  "Capacité: 500L",
			value:   "1000L",
			outcome: domain.VerdictClearedUnsupported,
		},
		{
			name:    "number inside a longer source number is cleared",
			source:  "Capacité: 1500L",
			value:   "500L",
			outcome: domain.VerdictClearedUnsupported,
		},
		{
			name:    "capacity present in source is kept",
			source:  "Capacité: 500L",
			value:   "500L",
			outcome: domain.VerdictKept,
		},
		{
			name:    "two characters are exempt",
			source:  "Capacité: 500L",
			value:   "4K",
			outcome: domain.VerdictKept,
		},
		{
			name:    "exactly three characters are checked",
			source:  "Capacité: 500L",
			value:   "UHD",
			outcome: domain.VerdictClearedUnsupported,
		},
		{
			name:    "three characters present are kept",
			source:  "Classe énergétique A++",
			value:   "A++",
			outcome: domain.VerdictKept,
		},
		{
			name:    "phrase above ratio is kept",
			source:  "Réfrigérateur combiné avec distributeur d'eau intégré",
			value:   "distributeur d'eau fraîche",
			outcome: domain.VerdictKept,
		},
		{
			name:    "phrase below ratio is cleared",
			source:  "Réfrigérateur combiné avec distributeur d'eau intégré",
			value:   "machine à glaçons connectée",
			outcome: domain.VerdictClearedUnsupported,
		},
		{
			name:    "deny-listed phrase is cleared even when present",
			source:  "Lorem ipsum dolor sit amet",
			value:   "Lorem ipsum dolor",
			outcome: domain.VerdictClearedSuspicious,
		},
		{
			name:    "foreign marker is flagged but kept",
			source:  "Cuve en stainless steel brossé",
			value:   "stainless steel",
			outcome: domain.VerdictKept,
			foreign: true,
		},
		{
			name:    "marker inside another word is not flagged",
			source:  "Filtre withania inclus",
			value:   "withania",
			outcome: domain.VerdictKept,
		},
		{
			name:    "decomposed accents in source still match",
			source:  "Re\u0301frige\u0301rateur XC500",
			value:   "Réfrigérateur",
			outcome: domain.VerdictKept,
		},
		{
			name:    "punctuation only value is cleared",
			source:  "Capacité: 500L",
			value:   "---",
			outcome: domain.VerdictClearedUnsupported,
		},
	}

	validator := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := domain.NewProductRecord()
			record.Description = tt.value

			cleaned, verdicts := validator.Validate(record, tt.source)

			require.Len(t, verdicts, 1)
			assert.Equal(t, domain.FieldDescription, verdicts[0].Field)
			assert.Equal(t, tt.value, verdicts[0].Value)
			assert.Equal(t, tt.outcome, verdicts[0].Outcome)
			assert.Equal(t, tt.foreign, verdicts[0].ForeignLanguage)

			if tt.outcome == domain.VerdictKept {
				assert.Equal(t, tt.value, cleaned.Description)
			} else {
				assert.Empty(t, cleaned.Description)
			}
		})
	}
}

func TestGroundingValidator_CollectionsAndPaths(t *testing.T) {
	source := "Réfrigérateur XC500, marque CoolTech, 500L, classe A++. Technologie No Frost. Certifié CE."

	record := domain.NewProductRecord()
	record.ProductName = "XC500"
	record.Brand = "Samsung"
	record.TechnicalSpecs["capacity"] = "500L"
	record.TechnicalSpecs["noise"] = "39dB"
	record.Dimensions["hauteur"] = ""
	record.Features = []string{"No Frost", "", "Wi-Fi intégré"}
	record.Certifications = []string{"CE", "NF"}

	cleaned, verdicts := newTestValidator().Validate(record, source)

	assert.Equal(t, "XC500", cleaned.ProductName)
	assert.Empty(t, cleaned.Brand)
	assert.Equal(t, map[string]string{"capacity": "500L"}, cleaned.TechnicalSpecs)
	assert.Empty(t, cleaned.Dimensions)
	assert.Equal(t, []string{"No Frost"}, cleaned.Features)
	assert.Equal(t, []string{"CE", "NF"}, cleaned.Certifications)

	outcomes := make(map[string]domain.VerdictOutcome)
	for _, v := range verdicts {
		outcomes[v.Field] = v.Outcome
	}
	assert.Equal(t, map[string]domain.VerdictOutcome{
		"product_name":             domain.VerdictKept,
		"brand":                    domain.VerdictClearedUnsupported,
		"technical_specs.capacity": domain.VerdictKept,
		"technical_specs.noise":    domain.VerdictClearedUnsupported,
		"features[0]":              domain.VerdictKept,
		"features[2]":              domain.VerdictClearedUnsupported,
		"certifications[0]":        domain.VerdictKept,
		"certifications[1]":        domain.VerdictKept,
	}, outcomes)
}

func TestGroundingValidator_DoesNotMutateInput(t *testing.T) {
	record := domain.NewProductRecord()
	record.Brand = "Samsung"
	record.TechnicalSpecs["noise"] = "39dB"
	record.Features = []string{"Wi-Fi intégré"}

	newTestValidator().Validate(record, "Réfrigérateur XC500")

	assert.Equal(t, "Samsung", record.Brand)
	assert.Equal(t, "39dB", record.TechnicalSpecs["noise"])
	assert.Equal(t, []string{"Wi-Fi intégré"}, record.Features)
}

func TestGroundingValidator_ConfigurableThresholds(t *testing.T) {
	record := domain.NewProductRecord()
	record.Color = "gris anthracite mat"

	strict := NewGroundingValidator(GroundingConfig{MinLength: 3, Ratio: 1})
	lenient := NewGroundingValidator(GroundingConfig{MinLength: 3, Ratio: 0.5})

	source := "Coloris gris anthracite"
	strictOut, _ := strict.Validate(record, source)
	lenientOut, _ := lenient.Validate(record, source)

	assert.Empty(t, strictOut.Color)
	assert.Equal(t, "gris anthracite mat", lenientOut.Color)
}

func TestGroundingValidator_EmptyRecordHasNoVerdicts(t *testing.T) {
	cleaned, verdicts := newTestValidator().Validate(domain.NewProductRecord(), "texte")

	assert.Empty(t, verdicts)
	assert.Equal(t, domain.NewProductRecord(), cleaned)
}

func TestNormalizeForGrounding(t *testing.T) {
	assert.Equal(t, "capacité 500l", normalizeForGrounding("  Capacité:   500L "))
	assert.Equal(t, "d eau", normalizeForGrounding("d'eau"))
	assert.Equal(t, "", normalizeForGrounding("!!!"))
}
