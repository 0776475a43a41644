package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// maxRequestBytes bounds the size of a /predict body.
const maxRequestBytes = 1 << 20

type fieldState int

const (
	fieldMissing fieldState = iota
	fieldNotNumeric
	fieldNumber
)

type fieldValue struct {
	state fieldState
	value float64
}

func numberField(value float64) fieldValue {
	return fieldValue{state: fieldNumber, value: value}
}

// validateFields checks every field and accumulates all violations.
func validateFields(values [len(featureFields)]fieldValue) error {
	var violations []Violation
	for idx, field := range featureFields {
		value := values[idx]
		switch {
		case value.state == fieldMissing:
			violations = append(violations, Violation{Field: field.name, Reason: ReasonMissing})
		case value.state == fieldNotNumeric:
			violations = append(violations, Violation{Field: field.name, Reason: ReasonNotNumeric})
		case !(value.value >= FeatureMin && value.value <= FeatureMax):
			// Negated so NaN falls out of range as well.
			violations = append(violations, Violation{Field: field.name, Reason: ReasonOutOfRange})
		}
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// decodeFeatureVector parses a /predict body. Malformed JSON yields
// ErrInvalidPayload; a well-formed object with bad fields yields a
// *ValidationError carrying every violation. Unknown fields are ignored.
func decodeFeatureVector(body io.Reader) (FeatureVector, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxRequestBytes+1))
	if err != nil {
		return FeatureVector{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if len(raw) > maxRequestBytes {
		return FeatureVector{}, fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidPayload, maxRequestBytes)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return FeatureVector{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if fields == nil {
		return FeatureVector{}, fmt.Errorf("%w: body must be a JSON object", ErrInvalidPayload)
	}

	var values [len(featureFields)]fieldValue
	for idx, field := range featureFields {
		message, ok := fields[field.name]
		if !ok {
			continue
		}
		values[idx] = parseField(message)
	}
	if err := validateFields(values); err != nil {
		return FeatureVector{}, err
	}
	return FeatureVector{
		household:   values[0].value,
		retail:      values[1].value,
		foodService: values[2].value,
	}, nil
}

// decimalLiteral is the numeric string syntax accepted in lax mode: an
// optional sign, digits with an optional fraction, and an optional exponent.
var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// parseField coerces a field the way a lax float field does: JSON numbers,
// numeric strings (surrounding whitespace allowed) and booleans as 1 or 0.
// Literals too large for float64 become a signed infinity and, like the
// "inf" and "nan" strings, are later rejected as out of range.
func parseField(message json.RawMessage) fieldValue {
	decoder := json.NewDecoder(bytes.NewReader(message))
	decoder.UseNumber()
	var decoded any
	if err := decoder.Decode(&decoded); err != nil {
		return fieldValue{state: fieldNotNumeric}
	}
	switch typed := decoded.(type) {
	case json.Number:
		value, _ := strconv.ParseFloat(typed.String(), 64)
		return numberField(value)
	case bool:
		if typed {
			return numberField(1)
		}
		return numberField(0)
	case string:
		return parseNumericString(typed)
	default:
		return fieldValue{state: fieldNotNumeric}
	}
}

func parseNumericString(raw string) fieldValue {
	trimmed := strings.TrimSpace(raw)
	if value, ok := nonFiniteWord(trimmed); ok {
		return numberField(value)
	}
	if !decimalLiteral.MatchString(trimmed) {
		return fieldValue{state: fieldNotNumeric}
	}
	value, _ := strconv.ParseFloat(trimmed, 64)
	return numberField(value)
}

// nonFiniteWord recognises an optionally signed "inf", "infinity" or "nan".
func nonFiniteWord(value string) (float64, bool) {
	sign := 1
	word := value
	if word != "" && (word[0] == '+' || word[0] == '-') {
		if word[0] == '-' {
			sign = -1
		}
		word = word[1:]
	}
	switch strings.ToLower(word) {
	case "inf", "infinity":
		return math.Inf(sign), true
	case "nan":
		return math.NaN(), true
	default:
		return 0, false
	}
}
