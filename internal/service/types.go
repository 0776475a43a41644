package service

import (
	"github.com/foodwaste/predict-api/internal/model"
)

// Request field names, in the order their columns are fed to the model.
const (
	FieldHousehold   = "household_estimate"
	FieldRetail      = "retail_estimate"
	FieldFoodService = "food_service_estimate"
)

// Inclusive bounds for every feature, in kg/capita/year.
const (
	FeatureMin = 0.0
	FeatureMax = 100.0
)

type featureField struct {
	name   string
	column string
}

// featureFields is the request field to model column contract.
var featureFields = [...]featureField{
	{name: FieldHousehold, column: model.ColumnHousehold},
	{name: FieldRetail, column: model.ColumnRetail},
	{name: FieldFoodService, column: model.ColumnFoodService},
}

// FeatureVector is a validated set of the three food-waste estimates.
// The zero value is not valid; build one with NewFeatureVector.
type FeatureVector struct {
	household   float64
	retail      float64
	foodService float64
}

// NewFeatureVector range-checks the three estimates and returns an
// immutable vector or a *ValidationError naming every offending field.
func NewFeatureVector(household, retail, foodService float64) (FeatureVector, error) {
	values := [len(featureFields)]fieldValue{
		numberField(household),
		numberField(retail),
		numberField(foodService),
	}
	if err := validateFields(values); err != nil {
		return FeatureVector{}, err
	}
	return FeatureVector{household: household, retail: retail, foodService: foodService}, nil
}

func (v FeatureVector) Household() float64   { return v.household }
func (v FeatureVector) Retail() float64      { return v.retail }
func (v FeatureVector) FoodService() float64 { return v.foodService }

// Row lays the vector out in the fitted column order.
func (v FeatureVector) Row() model.FeatureRow {
	columns := make([]string, len(featureFields))
	for idx, field := range featureFields {
		columns[idx] = field.column
	}
	return model.FeatureRow{
		Columns: columns,
		Values:  []float64{v.household, v.retail, v.foodService},
	}
}

// PredictResponse is the success body of POST /predict.
type PredictResponse struct {
	Prediction float64 `json:"prediction"`
}

// ErrorDetail is one entry of an error body.
type ErrorDetail struct {
	Loc []string `json:"loc,omitempty"`
	Msg string   `json:"msg"`
}

// ErrorResponse is the body returned for client errors.
type ErrorResponse struct {
	Detail []ErrorDetail `json:"detail"`
}
