package usecase

import (
	"strings"
	"unicode/utf8"

	"github.com/productsheet/backend/internal/domain"
)

// ResultMerger combines per-segment records field by field.
type ResultMerger struct{}

// NewResultMerger creates a merger
func NewResultMerger() *ResultMerger {
	return &ResultMerger{}
}

// Merge keeps the longest non-empty value for scalars and map entries, with
// ties going to the first record seen, and unions list fields in
// first-seen order without duplicates.
func (m *ResultMerger) Merge(records []domain.ProductRecord) domain.ProductRecord {
	switch len(records) {
	case 0:
		return domain.NewProductRecord()
	case 1:
		return records[0].Clone()
	}

	merged := domain.NewProductRecord()
	for _, r := range records {
		for _, name := range domain.ScalarFieldNames {
			if v := r.Scalar(name); longer(v, merged.Scalar(name)) {
				merged.SetScalar(name, v)
			}
		}
		mergeMapping(merged.TechnicalSpecs, r.TechnicalSpecs)
		mergeMapping(merged.Dimensions, r.Dimensions)
		merged.Features = unionList(merged.Features, r.Features)
		merged.Certifications = unionList(merged.Certifications, r.Certifications)
	}
	return merged
}

// longer reports whether candidate should replace current. Blank values
// never win and equal lengths keep current.
func longer(candidate, current string) bool {
	if strings.TrimSpace(candidate) == "" {
		return false
	}
	return utf8.RuneCountInString(candidate) > utf8.RuneCountInString(current)
}

func mergeMapping(dst, src map[string]string) {
	for k, v := range src {
		if longer(v, dst[k]) {
			dst[k] = v
		}
	}
}

func unionList(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range src {
		if strings.TrimSpace(v) == "" || seen[v] {
			continue
		}
		seen[v] = true
		dst = append(dst, v)
	}
	return dst
}
