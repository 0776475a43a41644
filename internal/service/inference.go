package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"
)

type InferenceServiceConfig struct {
	Logger  *slog.Logger
	Metrics *Metrics
	Hooks   TelemetryHooks
}

// InferenceService runs validate -> transform -> predict -> round over a
// single process-wide Predictor. It holds no mutable state of its own.
type InferenceService struct {
	predictor Predictor
	logger    *slog.Logger
	metrics   *Metrics
	hooks     TelemetryHooks
}

func NewInferenceService(predictor Predictor, cfg InferenceServiceConfig) (*InferenceService, error) {
	if predictor == nil {
		return nil, errors.New("predictor must not be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	hooks := cfg.Hooks
	if hooks == nil {
		hooks = NopTelemetryHooks{}
	}
	return &InferenceService{
		predictor: predictor,
		logger:    logger,
		metrics:   metrics,
		hooks:     hooks,
	}, nil
}

func (s *InferenceService) Backend() string {
	return s.predictor.Name()
}

// PredictValues validates the three raw estimates and predicts. Invalid
// input returns a *ValidationError and never reaches the predictor.
func (s *InferenceService) PredictValues(
	ctx context.Context,
	household float64,
	retail float64,
	foodService float64,
) (float64, error) {
	features, err := NewFeatureVector(household, retail, foodService)
	if err != nil {
		return 0, err
	}
	return s.Predict(ctx, features)
}

// Predict scales the vector, runs the model and rounds the result to two
// decimals.
func (s *InferenceService) Predict(ctx context.Context, features FeatureVector) (float64, error) {
	row := features.Row()
	s.logger.DebugContext(ctx, "predict_feature_row", "row", row.String())

	start := time.Now()
	raw, err := s.infer(ctx, features)
	elapsed := time.Since(start)
	backend := s.predictor.Name()
	s.hooks.OnInference(ctx, backend, elapsed, err)
	if err != nil {
		s.metrics.RecordInference(backend, elapsed, 0, err)
		return 0, err
	}
	prediction := roundPrediction(raw)
	s.metrics.RecordInference(backend, elapsed, prediction, nil)
	return prediction, nil
}

func (s *InferenceService) infer(ctx context.Context, features FeatureVector) (float64, error) {
	scaled, err := s.predictor.Transform(ctx, features.Row())
	if err != nil {
		return 0, err
	}
	raw, err := s.predictor.Predict(ctx, scaled)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("%w: model returned non-finite value %v", ErrInference, raw)
	}
	return raw, nil
}

func (s *InferenceService) Close() error {
	return s.predictor.Close()
}
