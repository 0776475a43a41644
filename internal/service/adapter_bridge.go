package service

import (
	"context"
	"fmt"
	"os"

	"github.com/foodwaste/predict-api/internal/model"
)

const bridgeBackendName = "joblib-bridge"

// BridgePredictor evaluates the joblib serialized artifacts through an
// external command, for example `python3 scripts/joblib_bridge.py`.
type BridgePredictor struct {
	scalerPath    string
	modelPath     string
	scalerKind    string
	modelKind     string
	bridgeCommand []string
}

// NewBridgePredictor checks both artifact files and then asks the bridge to
// load each of them once, so an unreadable pickle stops startup instead of
// failing every request. Every failure wraps ErrArtifactLoad.
func NewBridgePredictor(
	ctx context.Context,
	scalerPath string,
	modelPath string,
	rawCommand string,
) (*BridgePredictor, error) {
	resolvedScaler, err := resolveBridgeArtifact(scalerPath, "scaler")
	if err != nil {
		return nil, err
	}
	resolvedModel, err := resolveBridgeArtifact(modelPath, "model")
	if err != nil {
		return nil, err
	}
	bridgeCommand, err := parseBridgeCommand(rawCommand)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid bridge command: %w", ErrArtifactLoad, err)
	}
	if len(bridgeCommand) == 0 {
		return nil, fmt.Errorf("%w: bridge backend needs a bridge command", ErrArtifactLoad)
	}
	scalerKind, err := loadBridgeArtifact(ctx, bridgeCommand, resolvedScaler, "scaler", bridgeOpTransform)
	if err != nil {
		return nil, err
	}
	modelKind, err := loadBridgeArtifact(ctx, bridgeCommand, resolvedModel, "model", bridgeOpPredict)
	if err != nil {
		return nil, err
	}
	return &BridgePredictor{
		scalerPath:    resolvedScaler,
		modelPath:     resolvedModel,
		scalerKind:    scalerKind,
		modelKind:     modelKind,
		bridgeCommand: bridgeCommand,
	}, nil
}

// loadBridgeArtifact runs a load request and returns the artifact's type
// name as reported by the bridge.
func loadBridgeArtifact(
	ctx context.Context,
	command []string,
	path string,
	label string,
	method string,
) (string, error) {
	response, err := runBridge(ctx, command, bridgeRequest{
		Op:           bridgeOpLoad,
		ArtifactPath: path,
		Method:       method,
	})
	if err != nil {
		return "", fmt.Errorf("%w: bridge could not load %s artifact %q: %w", ErrArtifactLoad, label, path, err)
	}
	return response.Kind, nil
}

func resolveBridgeArtifact(path string, label string) (string, error) {
	resolved, err := resolveArtifactPath(path, label)
	if err != nil {
		return "", err
	}
	info, statErr := os.Stat(resolved)
	if statErr != nil {
		return "", fmt.Errorf("%w: failed to stat %s artifact %q: %w", ErrArtifactLoad, label, resolved, statErr)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s artifact path %q is a directory", ErrArtifactLoad, label, resolved)
	}
	if info.Size() <= 0 {
		return "", fmt.Errorf("%w: %s artifact path %q is empty", ErrArtifactLoad, label, resolved)
	}
	return resolved, nil
}

func (p *BridgePredictor) Name() string {
	return bridgeBackendName
}

// ArtifactKinds returns the scaler and model type names reported at load.
func (p *BridgePredictor) ArtifactKinds() (string, string) {
	return p.scalerKind, p.modelKind
}

func (p *BridgePredictor) Transform(ctx context.Context, row model.FeatureRow) (model.FeatureRow, error) {
	response, err := runBridge(ctx, p.bridgeCommand, bridgeRequest{
		Op:           bridgeOpTransform,
		ArtifactPath: p.scalerPath,
		Columns:      row.Columns,
		Rows:         [][]float64{row.Values},
	})
	if err != nil {
		return model.FeatureRow{}, fmt.Errorf("bridge transform failed: %w", err)
	}
	if len(response.Rows) != 1 || len(response.Rows[0]) != row.Width() {
		return model.FeatureRow{}, fmt.Errorf(
			"%w: bridge transform returned %d rows for 1 row of %d features",
			ErrBackendProtocol,
			len(response.Rows),
			row.Width(),
		)
	}
	scaled := row.Clone()
	copy(scaled.Values, response.Rows[0])
	return scaled, nil
}

func (p *BridgePredictor) Predict(ctx context.Context, row model.FeatureRow) (float64, error) {
	response, err := runBridge(ctx, p.bridgeCommand, bridgeRequest{
		Op:           bridgeOpPredict,
		ArtifactPath: p.modelPath,
		Columns:      row.Columns,
		Rows:         [][]float64{row.Values},
	})
	if err != nil {
		return 0, fmt.Errorf("bridge predict failed: %w", err)
	}
	if len(response.Predictions) != 1 {
		return 0, fmt.Errorf(
			"%w: bridge predict returned %d predictions for 1 row",
			ErrBackendProtocol,
			len(response.Predictions),
		)
	}
	return response.Predictions[0], nil
}

// Close is a no-op: every call spawns and reaps its own subprocess.
func (*BridgePredictor) Close() error {
	return nil
}
