package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const (
	bridgeOpLoad      = "load"
	bridgeOpTransform = "transform"
	bridgeOpPredict   = "predict"
)

// bridgeRequest is written to the bridge's stdin. A load request carries
// only the artifact path and the method the artifact must expose.
type bridgeRequest struct {
	Op           string      `json:"op"`
	ArtifactPath string      `json:"artifact_path"`
	Method       string      `json:"method,omitempty"`
	Columns      []string    `json:"columns,omitempty"`
	Rows         [][]float64 `json:"rows,omitempty"`
}

type bridgeResponse struct {
	Kind        string      `json:"kind,omitempty"`
	Rows        [][]float64 `json:"rows,omitempty"`
	Predictions []float64   `json:"predictions,omitempty"`
	Error       string      `json:"error,omitempty"`
}

type bridgeRunFn func(
	ctx context.Context,
	command []string,
	request bridgeRequest,
) (bridgeResponse, error)

var runBridge bridgeRunFn = defaultRunBridge

func parseBridgeCommand(raw string) ([]string, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return nil, nil
	}
	parts := strings.Fields(clean)
	if len(parts) == 0 {
		return nil, fmt.Errorf("bridge command is empty")
	}
	return parts, nil
}

// defaultRunBridge spawns the command once per request: the JSON request
// goes to stdin and a single JSON response is read back from stdout.
func defaultRunBridge(
	ctx context.Context,
	command []string,
	request bridgeRequest,
) (bridgeResponse, error) {
	if len(command) == 0 {
		return bridgeResponse{}, fmt.Errorf("%w: bridge command is not configured", ErrBackendUnavailable)
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return bridgeResponse{}, fmt.Errorf("%w: encode %s request: %w", ErrBackendProtocol, request.Op, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if runErr := cmd.Run(); runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return bridgeResponse{}, ctxErr
		}
		return bridgeResponse{}, classifyBridgeRunError(runErr, strings.TrimSpace(stderr.String()))
	}
	return decodeBridgeResponse(stdout.Bytes())
}

// classifyBridgeRunError separates a command that could not be started
// (unavailable) from one that ran and exited non-zero (inference).
func classifyBridgeRunError(runErr error, stderr string) error {
	class := ErrBackendInference
	var execErr *exec.Error
	var pathErr *os.PathError
	if errors.As(runErr, &execErr) || errors.As(runErr, &pathErr) {
		class = ErrBackendUnavailable
	}
	if stderr == "" {
		return fmt.Errorf("%w: bridge command failed: %w", class, runErr)
	}
	return fmt.Errorf("%w: bridge command failed: %w: %s", class, runErr, stderr)
}

func decodeBridgeResponse(raw []byte) (bridgeResponse, error) {
	var decoded bridgeResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return bridgeResponse{}, fmt.Errorf("%w: decode bridge response: %w", ErrBackendProtocol, err)
	}
	if reported := strings.TrimSpace(decoded.Error); reported != "" {
		return bridgeResponse{}, fmt.Errorf("%w: bridge reported: %s", ErrBackendInference, reported)
	}
	return decoded, nil
}
