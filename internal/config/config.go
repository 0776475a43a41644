// Package config loads the API server settings from flags, FOODWASTE_
// environment variables and an optional config file, in that precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "FOODWASTE"

const (
	BackendNative = "native"
	BackendBridge = "bridge"
)

const (
	keyConfig            = "config"
	keyAddr              = "addr"
	keyBackend           = "backend"
	keyScalerPath        = "scaler-path"
	keyModelPath         = "model-path"
	keyBridgeCmd         = "bridge-cmd"
	keyBridgeLoadTimeout = "bridge-load-timeout"
	keyLogFormat         = "log-format"
	keyLogLevel          = "log-level"
	keyCORSOrigins       = "cors-allowed-origins"
	keyPredictTimeout    = "predict-timeout"
	keyReadHeaderTimeout = "read-header-timeout"
	keyShutdownTimeout   = "shutdown-timeout"
	keyLogHooks          = "log-telemetry-hooks"
)

// ErrInvalidConfig wraps every rejected setting.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Addr               string
	Backend            string
	ScalerPath         string
	ModelPath          string
	BridgeCmd          string
	BridgeLoadTimeout  time.Duration
	LogFormat          string
	LogLevel           string
	CORSAllowedOrigins []string
	PredictTimeout     time.Duration
	ReadHeaderTimeout  time.Duration
	ShutdownTimeout    time.Duration
	LogTelemetryHooks  bool
}

func newFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.String(keyConfig, "", "optional YAML/JSON/TOML config file")
	flags.String(keyAddr, ":8000", "HTTP listen address")
	flags.String(keyBackend, BackendNative, "predictor backend: native|bridge")
	flags.String(keyScalerPath, "", "fitted scaler artifact path")
	flags.String(keyModelPath, "", "fitted regressor artifact path")
	flags.String(keyBridgeCmd, "python3 scripts/joblib_bridge.py", "bridge subprocess command (bridge backend)")
	flags.Duration(keyBridgeLoadTimeout, 30*time.Second, "startup timeout for loading each artifact through the bridge")
	flags.String(keyLogFormat, "json", "log format: json|text|discard")
	flags.String(keyLogLevel, "info", "log level: debug|info|warn|error")
	flags.StringSlice(keyCORSOrigins, []string{"*"}, "allowed CORS origins, * for any")
	flags.Duration(keyPredictTimeout, 0, "per-request predict timeout (0 disables)")
	flags.Duration(keyReadHeaderTimeout, 5*time.Second, "HTTP read header timeout")
	flags.Duration(keyShutdownTimeout, 5*time.Second, "graceful shutdown timeout")
	flags.Bool(keyLogHooks, false, "emit debug telemetry hook events to the logger")
	return flags
}

// Load parses args (without the program name) and resolves the final
// configuration.
func Load(name string, args []string) (Config, error) {
	flags := newFlagSet(name)
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString(keyConfig)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := Config{
		Addr:               strings.TrimSpace(v.GetString(keyAddr)),
		Backend:            strings.ToLower(strings.TrimSpace(v.GetString(keyBackend))),
		ScalerPath:         strings.TrimSpace(v.GetString(keyScalerPath)),
		ModelPath:          strings.TrimSpace(v.GetString(keyModelPath)),
		BridgeCmd:          strings.TrimSpace(v.GetString(keyBridgeCmd)),
		BridgeLoadTimeout:  v.GetDuration(keyBridgeLoadTimeout),
		LogFormat:          strings.TrimSpace(v.GetString(keyLogFormat)),
		LogLevel:           strings.TrimSpace(v.GetString(keyLogLevel)),
		CORSAllowedOrigins: splitOrigins(v.GetStringSlice(keyCORSOrigins)),
		PredictTimeout:     v.GetDuration(keyPredictTimeout),
		ReadHeaderTimeout:  v.GetDuration(keyReadHeaderTimeout),
		ShutdownTimeout:    v.GetDuration(keyShutdownTimeout),
		LogTelemetryHooks:  v.GetBool(keyLogHooks),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// splitOrigins accepts both list values and a single comma separated string,
// which is how an environment variable arrives.
func splitOrigins(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", keyAddr))
	}
	switch c.Backend {
	case BackendNative:
	case BackendBridge:
		if c.BridgeCmd == "" {
			errs = append(errs, fmt.Errorf("%s is required for the bridge backend", keyBridgeCmd))
		}
		if c.BridgeLoadTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %s", keyBridgeLoadTimeout, c.BridgeLoadTimeout))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported %s %q", keyBackend, c.Backend))
	}
	if c.ScalerPath == "" {
		errs = append(errs, fmt.Errorf("%s is required", keyScalerPath))
	}
	if c.ModelPath == "" {
		errs = append(errs, fmt.Errorf("%s is required", keyModelPath))
	}
	if len(c.CORSAllowedOrigins) == 0 {
		errs = append(errs, fmt.Errorf("%s must list at least one origin", keyCORSOrigins))
	}
	if c.PredictTimeout < 0 {
		errs = append(errs, fmt.Errorf("%s must be >= 0, got %s", keyPredictTimeout, c.PredictTimeout))
	}
	if c.ReadHeaderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be > 0, got %s", keyReadHeaderTimeout, c.ReadHeaderTimeout))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be > 0, got %s", keyShutdownTimeout, c.ShutdownTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
