package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/foodwaste/predict-api/internal/model"
)

const nativeBackendName = "native"

type NativePredictor struct {
	scalerPath string
	modelPath  string
	scaler     model.Scaler
	regressor  model.Regressor
}

// NewNativePredictor loads both exported artifacts once. Any failure is
// reported as ErrArtifactLoad and should stop the process from serving.
func NewNativePredictor(scalerPath string, modelPath string) (*NativePredictor, error) {
	resolvedScaler, err := resolveArtifactPath(scalerPath, "scaler")
	if err != nil {
		return nil, err
	}
	resolvedModel, err := resolveArtifactPath(modelPath, "model")
	if err != nil {
		return nil, err
	}
	scaler, err := model.LoadScaler(resolvedScaler)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactLoad, err)
	}
	regressor, err := model.LoadRegressor(resolvedModel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactLoad, err)
	}
	return NewNativePredictorFrom(resolvedScaler, resolvedModel, scaler, regressor)
}

// NewNativePredictorFrom wraps already loaded artifacts.
func NewNativePredictorFrom(
	scalerPath string,
	modelPath string,
	scaler model.Scaler,
	regressor model.Regressor,
) (*NativePredictor, error) {
	if scaler == nil || regressor == nil {
		return nil, fmt.Errorf("%w: scaler and model are required", ErrArtifactLoad)
	}
	scalerNames := scaler.FeatureNames()
	modelNames := regressor.FeatureNames()
	if len(scalerNames) > 0 && len(modelNames) > 0 && !slices.Equal(scalerNames, modelNames) {
		return nil, fmt.Errorf(
			"%w: scaler features %v differ from model features %v",
			ErrArtifactLoad,
			scalerNames,
			modelNames,
		)
	}
	return &NativePredictor{
		scalerPath: scalerPath,
		modelPath:  modelPath,
		scaler:     scaler,
		regressor:  regressor,
	}, nil
}

func (p *NativePredictor) Name() string {
	return nativeBackendName + "-" + p.regressor.Kind()
}

func (p *NativePredictor) Transform(_ context.Context, row model.FeatureRow) (model.FeatureRow, error) {
	scaled, err := p.scaler.Transform(row)
	if err != nil {
		return model.FeatureRow{}, fmt.Errorf("%w: scaler transform: %w", ErrInference, err)
	}
	return scaled, nil
}

func (p *NativePredictor) Predict(_ context.Context, row model.FeatureRow) (float64, error) {
	prediction, err := p.regressor.Predict(row)
	if err != nil {
		return 0, fmt.Errorf("%w: model predict: %w", ErrInference, err)
	}
	return prediction, nil
}

func (p *NativePredictor) Close() error {
	if p == nil {
		return errors.New("predictor is nil")
	}
	return nil
}

func resolveArtifactPath(value string, label string) (string, error) {
	candidate := filepath.Clean(value)
	if value == "" || candidate == "." {
		return "", fmt.Errorf("%w: %s artifact path is required", ErrArtifactLoad, label)
	}
	absPath, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: failed to resolve %s path %q: %w", ErrArtifactLoad, label, candidate, err)
	}
	return absPath, nil
}

// ArtifactPaths returns the resolved scaler and model paths.
func (p *NativePredictor) ArtifactPaths() (string, string) {
	return p.scalerPath, p.modelPath
}
