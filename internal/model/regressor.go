package model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Regressor maps a scaled feature row to a single numeric estimate.
type Regressor interface {
	Kind() string
	FeatureNames() []string
	Predict(row FeatureRow) (float64, error)
}

// NewRegressor validates an artifact and freezes it into a Regressor.
func NewRegressor(artifact ModelArtifact) (Regressor, error) {
	switch normalizeKind(artifact.Kind) {
	case ModelKindLinear:
		return newLinearRegressor(artifact)
	case ModelKindTree:
		if len(artifact.Trees) != 1 {
			return nil, fmt.Errorf(
				"%w: tree model needs exactly one tree, got %d",
				ErrInvalidArtifact,
				len(artifact.Trees),
			)
		}
		return newForestRegressor(ModelKindTree, artifact)
	case ModelKindForest:
		return newForestRegressor(ModelKindForest, artifact)
	case "":
		return nil, fmt.Errorf("%w: model kind is required", ErrInvalidArtifact)
	default:
		return nil, fmt.Errorf("%w: unsupported model kind %q", ErrInvalidArtifact, artifact.Kind)
	}
}

type linearRegressor struct {
	featureNames []string
	coefficients []float64
	intercept    float64
}

func newLinearRegressor(artifact ModelArtifact) (Regressor, error) {
	width := len(artifact.Coefficients)
	if width == 0 {
		return nil, fmt.Errorf("%w: linear model needs coefficients", ErrInvalidArtifact)
	}
	if artifact.NFeatures != 0 && artifact.NFeatures != width {
		return nil, fmt.Errorf(
			"%w: linear model declares %d features but has %d coefficients",
			ErrInvalidArtifact,
			artifact.NFeatures,
			width,
		)
	}
	if err := checkFeatureNames(artifact.FeatureNames, width); err != nil {
		return nil, err
	}
	for idx, coef := range artifact.Coefficients {
		if !isFinite(coef) {
			return nil, fmt.Errorf("%w: coefficient %d is not finite", ErrInvalidArtifact, idx)
		}
	}
	if !isFinite(artifact.Intercept) {
		return nil, fmt.Errorf("%w: intercept is not finite", ErrInvalidArtifact)
	}
	return &linearRegressor{
		featureNames: copyStrings(artifact.FeatureNames),
		coefficients: copyFloats(artifact.Coefficients),
		intercept:    artifact.Intercept,
	}, nil
}

func (m *linearRegressor) Kind() string {
	return ModelKindLinear
}

func (m *linearRegressor) FeatureNames() []string {
	return copyStrings(m.featureNames)
}

func (m *linearRegressor) Predict(row FeatureRow) (float64, error) {
	if err := checkColumns(m.featureNames, len(m.coefficients), row); err != nil {
		return 0, err
	}
	return m.intercept + floats.Dot(m.coefficients, row.Values), nil
}

type regressionTree struct {
	left      []int
	right     []int
	feature   []int
	threshold []float64
	value     []float64
}

type forestRegressor struct {
	kind         string
	featureNames []string
	width        int
	trees        []regressionTree
}

func newForestRegressor(kind string, artifact ModelArtifact) (Regressor, error) {
	if len(artifact.Trees) == 0 {
		return nil, fmt.Errorf("%w: %s model needs trees", ErrInvalidArtifact, kind)
	}
	width := artifact.NFeatures
	if width == 0 {
		width = len(artifact.FeatureNames)
	}
	if width == 0 {
		return nil, fmt.Errorf(
			"%w: %s model needs n_features or feature_names",
			ErrInvalidArtifact,
			kind,
		)
	}
	if err := checkFeatureNames(artifact.FeatureNames, width); err != nil {
		return nil, err
	}
	trees := make([]regressionTree, 0, len(artifact.Trees))
	for idx, tree := range artifact.Trees {
		built, err := newRegressionTree(tree, width)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", idx, err)
		}
		trees = append(trees, built)
	}
	return &forestRegressor{
		kind:         kind,
		featureNames: copyStrings(artifact.FeatureNames),
		width:        width,
		trees:        trees,
	}, nil
}

func newRegressionTree(artifact TreeArtifact, width int) (regressionTree, error) {
	nodes := len(artifact.Value)
	if nodes == 0 {
		return regressionTree{}, fmt.Errorf("%w: tree has no nodes", ErrInvalidArtifact)
	}
	if len(artifact.ChildrenLeft) != nodes ||
		len(artifact.ChildrenRight) != nodes ||
		len(artifact.Feature) != nodes ||
		len(artifact.Threshold) != nodes {
		return regressionTree{}, fmt.Errorf("%w: tree arrays differ in length", ErrInvalidArtifact)
	}
	for node := 0; node < nodes; node++ {
		left := artifact.ChildrenLeft[node]
		right := artifact.ChildrenRight[node]
		if left == -1 && right == -1 {
			if !isFinite(artifact.Value[node]) {
				return regressionTree{}, fmt.Errorf("%w: leaf %d value is not finite", ErrInvalidArtifact, node)
			}
			continue
		}
		// Children always follow their parent, which also rules out cycles.
		if left <= node || left >= nodes || right <= node || right >= nodes {
			return regressionTree{}, fmt.Errorf("%w: node %d has invalid children", ErrInvalidArtifact, node)
		}
		feature := artifact.Feature[node]
		if feature < 0 || feature >= width {
			return regressionTree{}, fmt.Errorf(
				"%w: node %d splits on feature %d of %d",
				ErrInvalidArtifact,
				node,
				feature,
				width,
			)
		}
		if !isFinite(artifact.Threshold[node]) {
			return regressionTree{}, fmt.Errorf("%w: node %d threshold is not finite", ErrInvalidArtifact, node)
		}
	}
	return regressionTree{
		left:      append([]int(nil), artifact.ChildrenLeft...),
		right:     append([]int(nil), artifact.ChildrenRight...),
		feature:   append([]int(nil), artifact.Feature...),
		threshold: copyFloats(artifact.Threshold),
		value:     copyFloats(artifact.Value),
	}, nil
}

func (t regressionTree) predict(values []float64) float64 {
	node := 0
	for t.left[node] != -1 {
		if values[t.feature[node]] <= t.threshold[node] {
			node = t.left[node]
		} else {
			node = t.right[node]
		}
	}
	return t.value[node]
}

func (m *forestRegressor) Kind() string {
	return m.kind
}

func (m *forestRegressor) FeatureNames() []string {
	return copyStrings(m.featureNames)
}

func (m *forestRegressor) Predict(row FeatureRow) (float64, error) {
	if err := checkColumns(m.featureNames, m.width, row); err != nil {
		return 0, err
	}
	estimates := make([]float64, len(m.trees))
	for idx, tree := range m.trees {
		estimates[idx] = tree.predict(row.Values)
	}
	return stat.Mean(estimates, nil), nil
}
