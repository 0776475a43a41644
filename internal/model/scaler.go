package model

import (
	"fmt"
	"math"
)

// Scaler maps a raw feature row onto the space the model was trained in.
type Scaler interface {
	Kind() string
	FeatureNames() []string
	Transform(row FeatureRow) (FeatureRow, error)
}

// fittedScaler evaluates (x - center) / divisor for standard scalers and
// x*mul + add for minmax ones. Exactly one pair is populated.
type fittedScaler struct {
	kind         string
	featureNames []string
	center       []float64
	divisor      []float64
	mul          []float64
	add          []float64
}

// NewScaler validates an artifact and freezes it into a Scaler.
func NewScaler(artifact ScalerArtifact) (Scaler, error) {
	kind := normalizeKind(artifact.Kind)
	switch kind {
	case ScalerKindStandard:
		return newStandardScaler(artifact)
	case ScalerKindMinMax:
		return newMinMaxScaler(artifact)
	case "":
		return nil, fmt.Errorf("%w: scaler kind is required", ErrInvalidArtifact)
	default:
		return nil, fmt.Errorf("%w: unsupported scaler kind %q", ErrInvalidArtifact, artifact.Kind)
	}
}

func newStandardScaler(artifact ScalerArtifact) (Scaler, error) {
	width := len(artifact.Mean)
	if width == 0 {
		return nil, fmt.Errorf("%w: standard scaler needs mean", ErrInvalidArtifact)
	}
	if len(artifact.Scale) != width {
		return nil, fmt.Errorf(
			"%w: standard scaler has %d means and %d scales",
			ErrInvalidArtifact,
			width,
			len(artifact.Scale),
		)
	}
	if err := checkFeatureNames(artifact.FeatureNames, width); err != nil {
		return nil, err
	}
	divisor := make([]float64, width)
	for idx := 0; idx < width; idx++ {
		mean := artifact.Mean[idx]
		scale := artifact.Scale[idx]
		if !isFinite(mean) || !isFinite(scale) {
			return nil, fmt.Errorf("%w: standard scaler column %d is not finite", ErrInvalidArtifact, idx)
		}
		// Constant columns are fitted with scale 0 and left unscaled.
		if scale == 0 {
			scale = 1
		}
		divisor[idx] = scale
	}
	return &fittedScaler{
		kind:         ScalerKindStandard,
		featureNames: copyStrings(artifact.FeatureNames),
		center:       copyFloats(artifact.Mean),
		divisor:      divisor,
	}, nil
}

func newMinMaxScaler(artifact ScalerArtifact) (Scaler, error) {
	width := len(artifact.Scale)
	if width == 0 {
		return nil, fmt.Errorf("%w: minmax scaler needs scale", ErrInvalidArtifact)
	}
	if len(artifact.Min) != width {
		return nil, fmt.Errorf(
			"%w: minmax scaler has %d scales and %d mins",
			ErrInvalidArtifact,
			width,
			len(artifact.Min),
		)
	}
	if err := checkFeatureNames(artifact.FeatureNames, width); err != nil {
		return nil, err
	}
	for idx := 0; idx < width; idx++ {
		if !isFinite(artifact.Scale[idx]) || !isFinite(artifact.Min[idx]) {
			return nil, fmt.Errorf("%w: minmax scaler column %d is not finite", ErrInvalidArtifact, idx)
		}
	}
	return &fittedScaler{
		kind:         ScalerKindMinMax,
		featureNames: copyStrings(artifact.FeatureNames),
		mul:          copyFloats(artifact.Scale),
		add:          copyFloats(artifact.Min),
	}, nil
}

func (s *fittedScaler) Kind() string {
	return s.kind
}

func (s *fittedScaler) FeatureNames() []string {
	return copyStrings(s.featureNames)
}

func (s *fittedScaler) Transform(row FeatureRow) (FeatureRow, error) {
	if err := checkColumns(s.featureNames, s.width(), row); err != nil {
		return FeatureRow{}, err
	}
	out := row.Clone()
	for idx, value := range row.Values {
		if s.kind == ScalerKindStandard {
			out.Values[idx] = (value - s.center[idx]) / s.divisor[idx]
			continue
		}
		out.Values[idx] = value*s.mul[idx] + s.add[idx]
	}
	return out, nil
}

func (s *fittedScaler) width() int {
	if s.kind == ScalerKindStandard {
		return len(s.center)
	}
	return len(s.mul)
}

func checkFeatureNames(names []string, width int) error {
	if len(names) == 0 {
		return nil
	}
	if len(names) != width {
		return fmt.Errorf(
			"%w: %d feature names for %d features",
			ErrInvalidArtifact,
			len(names),
			width,
		)
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate feature name %q", ErrInvalidArtifact, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

func copyStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func copyFloats(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	return out
}
