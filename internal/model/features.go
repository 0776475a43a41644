package model

import (
	"fmt"
	"strings"
)

// Column names the scaler and model were fitted against. Order matters.
const (
	ColumnHousehold   = "Household estimate (kg/capita/year)"
	ColumnRetail      = "Retail estimate (kg/capita/year)"
	ColumnFoodService = "Food service estimate (kg/capita/year)"
)

// FeatureColumns returns a fresh copy of the fitted column order.
func FeatureColumns() []string {
	return []string{ColumnHousehold, ColumnRetail, ColumnFoodService}
}

// FeatureRow is a single named row handed to a scaler or a model.
type FeatureRow struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
}

func (r FeatureRow) Width() int {
	return len(r.Values)
}

// Clone returns a deep copy so transforms never alias their input.
func (r FeatureRow) Clone() FeatureRow {
	out := FeatureRow{
		Columns: make([]string, len(r.Columns)),
		Values:  make([]float64, len(r.Values)),
	}
	copy(out.Columns, r.Columns)
	copy(out.Values, r.Values)
	return out
}

func (r FeatureRow) String() string {
	var b strings.Builder
	for idx, column := range r.Columns {
		if idx > 0 {
			b.WriteString(", ")
		}
		value := "?"
		if idx < len(r.Values) {
			value = fmt.Sprintf("%g", r.Values[idx])
		}
		fmt.Fprintf(&b, "%s=%s", column, value)
	}
	return b.String()
}

// checkColumns verifies the row carries exactly the columns an artifact was
// fitted with. An empty expected list only checks the width.
func checkColumns(expected []string, width int, row FeatureRow) error {
	if len(row.Columns) != len(row.Values) {
		return fmt.Errorf(
			"%w: row has %d columns but %d values",
			ErrShapeMismatch,
			len(row.Columns),
			len(row.Values),
		)
	}
	if width > 0 && row.Width() != width {
		return fmt.Errorf(
			"%w: expected %d features, got %d",
			ErrShapeMismatch,
			width,
			row.Width(),
		)
	}
	if len(expected) == 0 {
		return nil
	}
	if len(expected) != len(row.Columns) {
		return fmt.Errorf(
			"%w: fitted with %d columns, got %d",
			ErrFeatureNames,
			len(expected),
			len(row.Columns),
		)
	}
	for idx, name := range expected {
		if row.Columns[idx] != name {
			return fmt.Errorf(
				"%w: column %d is %q, fitted with %q",
				ErrFeatureNames,
				idx,
				row.Columns[idx],
				name,
			)
		}
	}
	return nil
}
