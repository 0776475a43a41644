package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

const (
	ScalerKindStandard = "standard"
	ScalerKindMinMax   = "minmax"

	ModelKindLinear = "linear"
	ModelKindTree   = "tree"
	ModelKindForest = "forest"
)

// ScalerArtifact is the exported form of a fitted scaler.
type ScalerArtifact struct {
	Kind         string    `json:"kind"`
	FeatureNames []string  `json:"feature_names,omitempty"`
	Mean         []float64 `json:"mean,omitempty"`
	Scale        []float64 `json:"scale,omitempty"`
	Min          []float64 `json:"min,omitempty"`
}

// TreeArtifact is an array-encoded regression tree. Node i is a leaf when
// both children are -1; otherwise samples with x[feature] <= threshold go left.
type TreeArtifact struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
}

// ModelArtifact is the exported form of a fitted regressor.
type ModelArtifact struct {
	Kind         string         `json:"kind"`
	FeatureNames []string       `json:"feature_names,omitempty"`
	NFeatures    int            `json:"n_features,omitempty"`
	Coefficients []float64      `json:"coefficients,omitempty"`
	Intercept    float64        `json:"intercept,omitempty"`
	Trees        []TreeArtifact `json:"trees,omitempty"`
}

// LoadScaler reads and validates a scaler artifact from disk.
func LoadScaler(path string) (Scaler, error) {
	raw, err := readArtifact(path, "scaler")
	if err != nil {
		return nil, err
	}
	scaler, err := ParseScaler(raw)
	if err != nil {
		return nil, fmt.Errorf("scaler artifact %q: %w", path, err)
	}
	return scaler, nil
}

// LoadRegressor reads and validates a model artifact from disk.
func LoadRegressor(path string) (Regressor, error) {
	raw, err := readArtifact(path, "model")
	if err != nil {
		return nil, err
	}
	regressor, err := ParseRegressor(raw)
	if err != nil {
		return nil, fmt.Errorf("model artifact %q: %w", path, err)
	}
	return regressor, nil
}

// ParseScaler decodes a YAML or JSON scaler artifact.
func ParseScaler(raw []byte) (Scaler, error) {
	var artifact ScalerArtifact
	if err := yaml.UnmarshalStrict(raw, &artifact); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	return NewScaler(artifact)
}

// ParseRegressor decodes a YAML or JSON model artifact.
func ParseRegressor(raw []byte) (Regressor, error) {
	var artifact ModelArtifact
	if err := yaml.UnmarshalStrict(raw, &artifact); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	return NewRegressor(artifact)
}

func readArtifact(path string, label string) ([]byte, error) {
	clean := filepath.Clean(strings.TrimSpace(path))
	if clean == "" || clean == "." {
		return nil, fmt.Errorf("%s artifact path is required", label)
	}
	info, err := os.Stat(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s artifact %q: %w", label, clean, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s artifact path %q is a directory", label, clean)
	}
	if info.Size() <= 0 {
		return nil, fmt.Errorf("%s artifact path %q is empty", label, clean)
	}
	raw, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s artifact %q: %w", label, clean, err)
	}
	return raw, nil
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}
