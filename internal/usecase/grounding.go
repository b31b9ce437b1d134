package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/phuslu/log"
	"golang.org/x/text/unicode/norm"

	"github.com/productsheet/backend/internal/domain"
)

var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// GroundingConfig holds the grounding heuristics and word lists
type GroundingConfig struct {
	// MinLength is the rune count below which values are accepted unchecked.
	MinLength int
	// Ratio is the share of a phrase's tokens that must occur in the source.
	Ratio             float64
	SuspiciousPhrases []string
	ForeignMarkers    []string
}

// GroundingValidator clears extracted values that cannot be traced back to
// the source text.
type GroundingValidator struct {
	minLength  int
	ratio      float64
	suspicious []string
	foreign    []string
}

// NewGroundingValidator creates a validator. Phrases and markers are
// normalised once here.
func NewGroundingValidator(config GroundingConfig) *GroundingValidator {
	ratio := config.Ratio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.7
	}

	return &GroundingValidator{
		minLength:  config.MinLength,
		ratio:      ratio,
		suspicious: normalizeAll(config.SuspiciousPhrases),
		foreign:    normalizeAll(config.ForeignMarkers),
	}
}

// groundingSource is the normalised source, built once per Validate call.
type groundingSource struct {
	tokens map[string]bool
}

func newGroundingSource(source string) groundingSource {
	tokens := make(map[string]bool)
	for _, t := range strings.Fields(normalizeForGrounding(source)) {
		tokens[t] = true
	}
	return groundingSource{tokens: tokens}
}

// Validate returns a copy of record with every ungrounded or suspicious value
// removed, plus one verdict per non-empty value inspected.
func (v *GroundingValidator) Validate(record domain.ProductRecord, source string) (domain.ProductRecord, []domain.Verdict) {
	src := newGroundingSource(source)
	out := record.Clone()
	var verdicts []domain.Verdict

	for _, name := range domain.ScalarFieldNames {
		value := out.Scalar(name)
		if strings.TrimSpace(value) == "" {
			continue
		}
		verdict := v.judge(name, value, src)
		if verdict.Outcome != domain.VerdictKept {
			out.SetScalar(name, "")
		}
		verdicts = append(verdicts, verdict)
	}

	verdicts = append(verdicts, v.validateMapping(domain.FieldTechnicalSpecs, out.TechnicalSpecs, src)...)
	verdicts = append(verdicts, v.validateMapping(domain.FieldDimensions, out.Dimensions, src)...)

	var listVerdicts []domain.Verdict
	out.Features, listVerdicts = v.validateList(domain.FieldFeatures, out.Features, src)
	verdicts = append(verdicts, listVerdicts...)
	out.Certifications, listVerdicts = v.validateList(domain.FieldCertifications, out.Certifications, src)
	verdicts = append(verdicts, listVerdicts...)

	if cleared := countCleared(verdicts); cleared > 0 {
		log.Info().Int("checked", len(verdicts)).Int("cleared", cleared).Msg("[GROUNDING] Removed unsupported values")
	}

	return out, verdicts
}

// validateMapping deletes cleared entries from m in place, in key order.
func (v *GroundingValidator) validateMapping(field string, m map[string]string, src groundingSource) []domain.Verdict {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var verdicts []domain.Verdict
	for _, k := range keys {
		value := m[k]
		if strings.TrimSpace(value) == "" {
			delete(m, k)
			continue
		}
		verdict := v.judge(field+"."+k, value, src)
		if verdict.Outcome != domain.VerdictKept {
			delete(m, k)
		}
		verdicts = append(verdicts, verdict)
	}
	return verdicts
}

func (v *GroundingValidator) validateList(field string, items []string, src groundingSource) ([]string, []domain.Verdict) {
	kept := make([]string, 0, len(items))
	var verdicts []domain.Verdict
	for i, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		verdict := v.judge(fmt.Sprintf("%s[%d]", field, i), item, src)
		if verdict.Outcome == domain.VerdictKept {
			kept = append(kept, item)
		}
		verdicts = append(verdicts, verdict)
	}
	return kept, verdicts
}

// judge applies, in order: the deny-list, the short-value exemption and the
// token grounding rule. Foreign markers only set a flag.
func (v *GroundingValidator) judge(field, value string, src groundingSource) domain.Verdict {
	normalized := normalizeForGrounding(value)
	verdict := domain.Verdict{
		Field:           field,
		Value:           value,
		Outcome:         domain.VerdictKept,
		ForeignLanguage: containsTerm(normalized, v.foreign),
	}

	if containsTerm(normalized, v.suspicious) {
		verdict.Outcome = domain.VerdictClearedSuspicious
		return verdict
	}

	if utf8.RuneCountInString(strings.TrimSpace(value)) < v.minLength {
		return verdict
	}

	if !v.grounded(normalized, src) {
		verdict.Outcome = domain.VerdictClearedUnsupported
	}
	return verdict
}

// grounded reports whether a normalised value is supported by the source. A
// single token must be a whole source token; a phrase needs ratio of its
// tokens.
func (v *GroundingValidator) grounded(normalized string, src groundingSource) bool {
	tokens := strings.Fields(normalized)
	switch len(tokens) {
	case 0:
		return false
	case 1:
		return src.tokens[tokens[0]]
	}

	found := 0
	for _, t := range tokens {
		if src.tokens[t] {
			found++
		}
	}
	return float64(found)/float64(len(tokens)) >= v.ratio
}

// normalizeForGrounding composes accents, lowercases, replaces punctuation
// with spaces and collapses whitespace.
func normalizeForGrounding(s string) string {
	s = strings.ToLower(norm.NFC.String(s))
	s = nonWordRegex.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func normalizeAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if n := normalizeForGrounding(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// containsTerm matches whole tokens only, so "the" does not hit "thermostat".
func containsTerm(normalized string, terms []string) bool {
	if normalized == "" {
		return false
	}
	padded := " " + normalized + " "
	for _, t := range terms {
		if strings.Contains(padded, " "+t+" ") {
			return true
		}
	}
	return false
}

func countCleared(verdicts []domain.Verdict) int {
	n := 0
	for _, v := range verdicts {
		if v.Outcome != domain.VerdictKept {
			n++
		}
	}
	return n
}
