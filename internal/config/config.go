package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/geal-ai/gridpoint/interp"
)

// Environment variables read by Load.
const (
	EnvDebug      = "GRIDPOINT_DEBUG"
	EnvLogLevel   = "GRIDPOINT_LOG_LEVEL"
	EnvMethod     = "GRIDPOINT_METHOD"
	EnvTimeLayout = "GRIDPOINT_TIME_LAYOUT"
)

// Config holds the settings shared by the reader commands. Command-line
// flags override them.
type Config struct {
	Debug    bool
	LogLevel zapcore.Level
	// Method is the default GRIB interpolation method.
	Method interp.Method
	// TimeLayout formats valid_time and ref_time in CSV output. Empty
	// leaves the writer's default.
	TimeLayout string
}

// ErrInvalidEnvVar reports an environment variable whose value cannot be
// used.
type ErrInvalidEnvVar struct {
	Name  string
	Value string
	Err   error
}

func (e *ErrInvalidEnvVar) Error() string {
	return fmt.Sprintf("environment variable %s=%q is invalid: %v", e.Name, e.Value, e.Err)
}

func (e *ErrInvalidEnvVar) Unwrap() error { return e.Err }

// Load reads configuration from the environment, after loading a .env file
// from the working directory if there is one.
func Load() (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	cfg := &Config{TimeLayout: os.Getenv(EnvTimeLayout)}

	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return nil, &ErrInvalidEnvVar{Name: EnvDebug, Value: v, Err: err}
		}
		cfg.Debug = debug
	}

	level := getenvDefault(EnvLogLevel, "info")
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, &ErrInvalidEnvVar{Name: EnvLogLevel, Value: level, Err: err}
	}
	if cfg.Debug {
		cfg.LogLevel = zapcore.DebugLevel
	}

	method := getenvDefault(EnvMethod, interp.Nearest.String())
	m, err := interp.ParseMethod(method)
	if err != nil {
		return nil, &ErrInvalidEnvVar{Name: EnvMethod, Value: method, Err: err}
	}
	cfg.Method = m

	if layout := cfg.TimeLayout; layout != "" && time.Unix(0, 0).UTC().Format(layout) == layout {
		return nil, &ErrInvalidEnvVar{Name: EnvTimeLayout, Value: layout, Err: fmt.Errorf("layout has no time fields")}
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
