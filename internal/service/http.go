package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const predictRoute = "/predict"

type HTTPServiceConfig struct {
	PredictTimeout time.Duration
	Logger         *slog.Logger
	Hooks          TelemetryHooks
	Metrics        *Metrics
}

type HTTPService struct {
	inference *InferenceService
	metrics   *Metrics

	predictTimeout time.Duration
	logger         *slog.Logger
	hooks          TelemetryHooks
}

func NewHTTPService(predictor Predictor, cfg HTTPServiceConfig) (*HTTPService, error) {
	if cfg.PredictTimeout < 0 {
		return nil, fmt.Errorf("predict timeout must be >= 0, got %s", cfg.PredictTimeout)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	hooks := cfg.Hooks
	if hooks == nil {
		hooks = NopTelemetryHooks{}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	inference, err := NewInferenceService(predictor, InferenceServiceConfig{
		Logger:  logger,
		Metrics: metrics,
		Hooks:   hooks,
	})
	if err != nil {
		return nil, err
	}
	return &HTTPService{
		inference:      inference,
		metrics:        metrics,
		predictTimeout: cfg.PredictTimeout,
		logger:         logger,
		hooks:          hooks,
	}, nil
}

func (s *HTTPService) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metricsHandler())
	mux.HandleFunc(predictRoute, s.handlePredict)
}

func (s *HTTPService) Inference() *InferenceService {
	return s.inference
}

func (s *HTTPService) Close() error {
	return s.inference.Close()
}

func (s *HTTPService) handleHealth(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		methodNotAllowed(writer, http.MethodGet)
		return
	}
	response := map[string]string{
		"status":  "ok",
		"backend": s.inference.Backend(),
	}
	writeJSON(writer, http.StatusOK, response)
}

func (s *HTTPService) metricsHandler() http.Handler {
	handler := s.metrics.Handler()
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodGet {
			methodNotAllowed(writer, http.MethodGet)
			return
		}
		handler.ServeHTTP(writer, request)
	})
}

func (s *HTTPService) handlePredict(writer http.ResponseWriter, request *http.Request) {
	start := time.Now()
	if request.Method != http.MethodPost {
		methodNotAllowed(writer, http.MethodPost)
		return
	}

	requestID := requestIDFromContext(request.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}
	s.metrics.RecordRequestStart()
	s.hooks.OnHTTPRequestStart(request.Context(), predictRoute, requestID)

	statusCode, err := s.servePredict(writer, request, requestID)

	elapsed := time.Since(start)
	s.metrics.RecordRequestDone(statusCode, elapsed)
	s.hooks.OnHTTPRequestDone(request.Context(), predictRoute, requestID, statusCode, elapsed, err)
}

func (s *HTTPService) servePredict(
	writer http.ResponseWriter,
	request *http.Request,
	requestID string,
) (int, error) {
	features, err := decodeFeatureVector(request.Body)
	if err != nil {
		statusCode := predictErrorStatusCode(err)
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			s.metrics.RecordValidationFailure(validationErr.Fields())
			s.logger.Info(
				"predict_request_rejected",
				"request_id", requestID,
				"fields", validationErr.Fields(),
			)
		} else {
			s.logger.Info(
				"predict_request_invalid",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		writeJSON(writer, statusCode, errorResponse(err))
		return statusCode, err
	}

	ctx := request.Context()
	if s.predictTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.predictTimeout)
		defer cancel()
	}
	prediction, err := s.inference.Predict(ctx, features)
	if err != nil {
		statusCode := predictErrorStatusCode(err)
		s.logger.Error(
			"predict_request_failed",
			"request_id", requestID,
			"backend", s.inference.Backend(),
			"status", statusCode,
			"error", err.Error(),
		)
		writeJSON(writer, statusCode, errorResponse(err))
		return statusCode, err
	}
	s.logger.Info(
		"predict_request_done",
		"request_id", requestID,
		"backend", s.inference.Backend(),
		"prediction", prediction,
	)
	writeJSON(writer, http.StatusOK, PredictResponse{Prediction: prediction})
	return http.StatusOK, nil
}

func predictErrorStatusCode(err error) int {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrBackendInference), errors.Is(err, ErrBackendProtocol):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) ErrorResponse {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		details := make([]ErrorDetail, len(validationErr.Violations))
		for idx, violation := range validationErr.Violations {
			details[idx] = ErrorDetail{
				Loc: []string{"body", violation.Field},
				Msg: violation.Message(),
			}
		}
		return ErrorResponse{Detail: details}
	}
	if errors.Is(err, ErrInvalidPayload) {
		return ErrorResponse{Detail: []ErrorDetail{{Loc: []string{"body"}, Msg: err.Error()}}}
	}
	return ErrorResponse{Detail: []ErrorDetail{{Msg: "prediction failed"}}}
}

func methodNotAllowed(writer http.ResponseWriter, allowed string) {
	writer.Header().Set("Allow", allowed)
	writeJSON(writer, http.StatusMethodNotAllowed, ErrorResponse{
		Detail: []ErrorDetail{{Msg: "method not allowed"}},
	})
}

func writeJSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}
