package service

import (
	"context"

	"github.com/foodwaste/predict-api/internal/model"
)

// Predictor is the pluggable scaler + model pair behind /predict.
// Implementations must be safe for concurrent use and must not mutate
// their artifacts after construction.
type Predictor interface {
	Name() string
	Transform(ctx context.Context, row model.FeatureRow) (model.FeatureRow, error)
	Predict(ctx context.Context, row model.FeatureRow) (float64, error)
	Close() error
}
