package service

import (
	"github.com/shopspring/decimal"
)

// predictionPlaces is the number of decimals returned to clients.
const predictionPlaces = 2

// roundPrediction rounds half away from zero on the shortest decimal form
// of value, so 12.345 becomes 12.35 even though its binary value is
// slightly below the midpoint.
func roundPrediction(value float64) float64 {
	rounded, _ := decimal.NewFromFloat(value).Round(predictionPlaces).Float64()
	return rounded
}
