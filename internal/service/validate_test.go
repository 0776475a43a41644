package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireViolations(t *testing.T, err error) []Violation {
	t.Helper()
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr), "expected *ValidationError, got %v", err)
	return validationErr.Violations
}

func TestNewFeatureVectorBoundaries(t *testing.T) {
	for _, value := range []float64{0, 100, 0.0001, 99.9999, 50} {
		_, err := NewFeatureVector(value, value, value)
		assert.NoError(t, err, "value=%v", value)
	}

	cases := []struct {
		name        string
		household   float64
		retail      float64
		foodService float64
		field       string
	}{
		{name: "household below", household: -0.0001, retail: 1, foodService: 1, field: FieldHousehold},
		{name: "household above", household: 100.0001, retail: 1, foodService: 1, field: FieldHousehold},
		{name: "retail below", household: 1, retail: -1, foodService: 1, field: FieldRetail},
		{name: "retail above", household: 1, retail: 101, foodService: 1, field: FieldRetail},
		{name: "food service below", household: 1, retail: 1, foodService: -5, field: FieldFoodService},
		{name: "food service above", household: 1, retail: 1, foodService: 1e9, field: FieldFoodService},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewFeatureVector(tc.household, tc.retail, tc.foodService)
			violations := requireViolations(t, err)
			require.Len(t, violations, 1)
			assert.Equal(t, tc.field, violations[0].Field)
			assert.Equal(t, ReasonOutOfRange, violations[0].Reason)
		})
	}
}

func TestNewFeatureVectorAccumulatesViolations(t *testing.T) {
	_, err := NewFeatureVector(-1, 50, 200)
	violations := requireViolations(t, err)
	require.Len(t, violations, 2)
	assert.Equal(t, FieldHousehold, violations[0].Field)
	assert.Equal(t, FieldFoodService, violations[1].Field)
}

func TestDecodeFeatureVector(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		features, err := decodeFeatureVector(strings.NewReader(
			`{"food_service_estimate": 15.2, "household_estimate": 45.5, "retail_estimate": 20.3}`))
		require.NoError(t, err)
		assert.Equal(t, 45.5, features.Household())
		assert.Equal(t, 20.3, features.Retail())
		assert.Equal(t, 15.2, features.FoodService())
	})

	t.Run("integers and exponents are numbers", func(t *testing.T) {
		features, err := decodeFeatureVector(strings.NewReader(
			`{"household_estimate": 100, "retail_estimate": 1e1, "food_service_estimate": 0}`))
		require.NoError(t, err)
		assert.Equal(t, 100.0, features.Household())
		assert.Equal(t, 10.0, features.Retail())
	})

	t.Run("unknown fields are ignored", func(t *testing.T) {
		_, err := decodeFeatureVector(strings.NewReader(
			`{"household_estimate": 1, "retail_estimate": 2, "food_service_estimate": 3, "country": "FR"}`))
		require.NoError(t, err)
	})

	t.Run("numeric strings and booleans are coerced", func(t *testing.T) {
		features, err := decodeFeatureVector(strings.NewReader(
			`{"household_estimate": "45.5", "retail_estimate": " 1e1 ", "food_service_estimate": true}`))
		require.NoError(t, err)
		assert.Equal(t, 45.5, features.Household())
		assert.Equal(t, 10.0, features.Retail())
		assert.Equal(t, 1.0, features.FoodService())

		features, err = decodeFeatureVector(strings.NewReader(
			`{"household_estimate": "+.5", "retail_estimate": "100.", "food_service_estimate": false}`))
		require.NoError(t, err)
		assert.Equal(t, 0.5, features.Household())
		assert.Equal(t, 100.0, features.Retail())
		assert.Equal(t, 0.0, features.FoodService())
	})

	t.Run("coerced strings are range checked", func(t *testing.T) {
		_, err := decodeFeatureVector(strings.NewReader(
			`{"household_estimate": "100.5", "retail_estimate": "-inf", "food_service_estimate": "NaN"}`))
		violations := requireViolations(t, err)
		require.Len(t, violations, 3)
		for _, violation := range violations {
			assert.Equal(t, ReasonOutOfRange, violation.Reason)
		}
	})

	t.Run("non-numeric values", func(t *testing.T) {
		_, err := decodeFeatureVector(strings.NewReader(
			`{"household_estimate": "forty", "retail_estimate": null, "food_service_estimate": [1]}`))
		violations := requireViolations(t, err)
		require.Len(t, violations, 3)
		for idx, field := range []string{FieldHousehold, FieldRetail, FieldFoodService} {
			assert.Equal(t, field, violations[idx].Field)
			assert.Equal(t, ReasonNotNumeric, violations[idx].Reason)
		}
	})

	t.Run("missing everything", func(t *testing.T) {
		_, err := decodeFeatureVector(strings.NewReader(`{}`))
		violations := requireViolations(t, err)
		require.Len(t, violations, 3)
		for _, violation := range violations {
			assert.Equal(t, ReasonMissing, violation.Reason)
		}
	})

	t.Run("overflowing literal is out of range", func(t *testing.T) {
		_, err := decodeFeatureVector(strings.NewReader(
			`{"household_estimate": 1e400, "retail_estimate": 2, "food_service_estimate": 3}`))
		violations := requireViolations(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, ReasonOutOfRange, violations[0].Reason)
	})

	for name, body := range map[string]string{
		"empty":     ``,
		"truncated": `{"household_estimate": 1`,
		"array":     `[1, 2, 3]`,
		"null":      `null`,
		"string":    `"hello"`,
	} {
		t.Run("invalid payload "+name, func(t *testing.T) {
			_, err := decodeFeatureVector(strings.NewReader(body))
			require.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestParseNumericString(t *testing.T) {
	for _, raw := range []string{"", " ", "0x10", "1_000", "1e", "--1", "+-inf", "12kg", "1,5"} {
		assert.Equal(t, fieldNotNumeric, parseNumericString(raw).state, "raw=%q", raw)
	}
	for raw, want := range map[string]float64{"7": 7, "-0.25": -0.25, "3E2": 300, "\t42\n": 42} {
		parsed := parseNumericString(raw)
		assert.Equal(t, fieldNumber, parsed.state, "raw=%q", raw)
		assert.Equal(t, want, parsed.value, "raw=%q", raw)
	}
}

func TestViolationMessage(t *testing.T) {
	violation := Violation{Field: FieldRetail, Reason: ReasonMissing}
	assert.Equal(t,
		"The input number for retail_estimate is out of range. Please provide a value between the specified limits.",
		violation.Message(),
	)
}

func TestValidationErrorText(t *testing.T) {
	err := &ValidationError{Violations: []Violation{
		{Field: FieldHousehold, Reason: ReasonOutOfRange},
		{Field: FieldFoodService, Reason: ReasonMissing},
	}}
	assert.Equal(t, "validation failed: household_estimate: out_of_range, food_service_estimate: missing", err.Error())
	assert.Equal(t, []string{FieldHousehold, FieldFoodService}, err.Fields())
}
