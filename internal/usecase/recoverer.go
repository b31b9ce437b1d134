package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/phuslu/log"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/productsheet/backend/internal/domain"
)

// acceptSchema decides whether a parsed object is a product record at all:
// it must be an object carrying at least one known field.
const acceptSchema = `{
  "type": "object",
  "anyOf": [
    {"required": ["product_name"]}, {"required": ["brand"]}, {"required": ["model_number"]},
    {"required": ["category"]}, {"required": ["description"]}, {"required": ["price_range"]},
    {"required": ["weight"]}, {"required": ["warranty"]}, {"required": ["power_consumption"]},
    {"required": ["color"]}, {"required": ["material"]}, {"required": ["technical_specs"]},
    {"required": ["dimensions"]}, {"required": ["features"]}, {"required": ["certifications"]}
  ]
}`

// strictSchema describes a reply that needs no coercion.
const strictSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "product_name": {"type": "string"},
    "brand": {"type": "string"},
    "model_number": {"type": "string"},
    "category": {"type": "string"},
    "description": {"type": "string"},
    "price_range": {"type": "string"},
    "weight": {"type": "string"},
    "warranty": {"type": "string"},
    "power_consumption": {"type": "string"},
    "color": {"type": "string"},
    "material": {"type": "string"},
    "technical_specs": {"type": "object", "additionalProperties": {"type": "string"}},
    "dimensions": {"type": "object", "additionalProperties": {"type": "string"}},
    "features": {"type": "array", "items": {"type": "string"}},
    "certifications": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	fencePattern      = regexp.MustCompile("^```[a-zA-Z]*\\s*|\\s*```$")
	permissivePattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// parseStrategy attempts to turn raw model text into a JSON object.
type parseStrategy struct {
	name  domain.RecoveryStrategy
	parse func(raw string, accept func(map[string]any) bool) (map[string]any, bool)
}

// ResponseRecoverer coerces raw model output into a ProductRecord using an
// ordered list of strategies, strictest first.
type ResponseRecoverer struct {
	strategies []parseStrategy
	accept     *jsonschema.Schema
	strict     *jsonschema.Schema
}

// NewResponseRecoverer creates a recoverer with the direct, pattern and
// repair strategies.
func NewResponseRecoverer() (*ResponseRecoverer, error) {
	accept, err := compileSchema("accept.json", acceptSchema)
	if err != nil {
		return nil, err
	}
	strict, err := compileSchema("strict.json", strictSchema)
	if err != nil {
		return nil, err
	}

	return &ResponseRecoverer{
		strategies: []parseStrategy{
			{name: domain.StrategyDirect, parse: parseDirect},
			{name: domain.StrategyPattern, parse: parsePattern},
			{name: domain.StrategyRepair, parse: parseRepaired},
		},
		accept: accept,
		strict: strict,
	}, nil
}

func compileSchema(name, src string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

// Recover never fails: when no strategy yields an object the result is the
// empty schema with StrategyNone and the raw text attached.
func (r *ResponseRecoverer) Recover(raw string) domain.Recovery {
	for _, strategy := range r.strategies {
		fields, ok := strategy.parse(raw, r.accepts)
		if !ok {
			continue
		}

		record, dropped := coerceRecord(fields)
		if len(dropped) > 0 {
			log.Debug().Strs("keys", dropped).Msg("[RECOVER] Ignoring unknown fields")
		}

		return domain.Recovery{
			Record:    record,
			Strategy:  strategy.name,
			Conforms:  r.strict.Validate(fields) == nil,
			RawText:   raw,
			RawFields: fields,
		}
	}

	return domain.Recovery{
		Record:   domain.NewProductRecord(),
		Strategy: domain.StrategyNone,
		RawText:  raw,
	}
}

func (r *ResponseRecoverer) accepts(fields map[string]any) bool {
	return r.accept.Validate(fields) == nil
}

// parseDirect strips code fences and parses the span from the first '{' to
// the last '}'.
func parseDirect(raw string, accept func(map[string]any) bool) (map[string]any, bool) {
	span, ok := braceSpan(stripFences(raw))
	if !ok {
		return nil, false
	}
	return decodeObject(span, accept)
}

// parsePattern tries each balanced top-level object in order, then the
// permissive multiline match.
func parsePattern(raw string, accept func(map[string]any) bool) (map[string]any, bool) {
	for _, candidate := range balancedObjects(raw) {
		if fields, ok := decodeObject(candidate, accept); ok {
			return fields, true
		}
	}
	if candidate := permissivePattern.FindString(raw); candidate != "" {
		return decodeObject(candidate, accept)
	}
	return nil, false
}

// parseRepaired removes trailing commas and quotes bare keys, then parses
// once.
func parseRepaired(raw string, accept func(map[string]any) bool) (map[string]any, bool) {
	span, ok := braceSpan(stripFences(raw))
	if !ok {
		return nil, false
	}
	return decodeObject(repairSyntax(span), accept)
}

// repairSyntax drops commas that directly precede '}' or ']' and quotes
// identifiers used as keys after '{' or ','. Text inside JSON strings is
// copied untouched.
func repairSyntax(s string) string {
	var (
		b        strings.Builder
		inString bool
		escaped  bool
		prev     byte
	)
	b.Grow(len(s) + 16)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				prev = c
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == ',':
			j := skipSpace(s, i+1)
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
			b.WriteByte(c)
			prev = c
		case isIdentStart(c) && (prev == '{' || prev == ','):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			if k := skipSpace(s, j); k < len(s) && s[k] == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:j])
				b.WriteByte('"')
			} else {
				b.WriteString(s[i:j])
			}
			prev = s[j-1]
			i = j - 1
		default:
			b.WriteByte(c)
			if !isSpace(c) {
				prev = c
			}
		}
	}
	return b.String()
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func stripFences(raw string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(strings.TrimSpace(raw), ""))
}

func braceSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// balancedObjects returns every top-level brace-balanced substring, ignoring
// braces inside JSON strings.
func balancedObjects(s string) []string {
	var (
		out      []string
		depth    int
		start    = -1
		inString bool
		escaped  bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				out = append(out, s[start:i+1])
			}
		}
	}
	return out
}

// decodeObject parses s as exactly one JSON object that passes accept.
// Numbers are kept as json.Number so unit formatting is exact.
func decodeObject(s string, accept func(map[string]any) bool) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	if !accept(fields) {
		return nil, false
	}
	return fields, true
}
