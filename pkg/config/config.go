// Package config loads tickrun configuration from YAML or JSON files with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"
)

// Config is the top-level tickrun configuration.
type Config struct {
	Driver    DriverConfig    `yaml:"driver" json:"driver"`
	Inspector InspectorConfig `yaml:"inspector" json:"inspector"`
	Tracing   TracingConfig   `yaml:"tracing" json:"tracing"`
}

// DriverConfig configures the ticker driver.
type DriverConfig struct {
	// TickIntervalMS is the tick interval in milliseconds.
	TickIntervalMS int `yaml:"tick_interval_ms" json:"tick_interval_ms"`
}

// TickInterval returns the tick interval as a duration.
func (c DriverConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// InspectorConfig configures the HTTP inspection endpoint.
type InspectorConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
	// StreamAddr is the address of the websocket lifecycle-event stream.
	// Empty disables the stream.
	StreamAddr string `yaml:"stream_addr" json:"stream_addr"`
}

// TracingConfig configures span export for task lifecycles.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Driver: DriverConfig{TickIntervalMS: 10},
		Inspector: InspectorConfig{
			Enabled: false,
			Addr:    ":8089",
		},
	}
}

// Load loads configuration from a file (YAML or JSON)
// Automatically detects file type by extension
func Load(path string, target interface{}) error {
	if strings.HasSuffix(path, ".json") {
		return LoadJSON(path, target)
	}
	// Default to YAML
	return LoadYAML(path, target)
}

// LoadWithEnv loads configuration from file and applies environment variable
// overrides. Environment variables use format PREFIX_FIELD_SUBFIELD
// (e.g. TICKRUN_DRIVER_TICKINTERVALMS).
func LoadWithEnv(path string, prefix string, target interface{}) error {
	if err := Load(path, target); err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}

	if err := ApplyEnvOverrides(prefix, target); err != nil {
		return fmt.Errorf("failed to apply env overrides: %w", err)
	}

	return nil
}

// ApplyEnvOverrides applies environment variable overrides to a
// configuration struct using reflection.
func ApplyEnvOverrides(prefix string, target interface{}) error {
	if prefix == "" {
		prefix = "TICKRUN"
	}

	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to a struct")
	}

	return applyEnvToStruct(prefix, val.Elem())
}

func applyEnvToStruct(prefix string, val reflect.Value) error {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		envKey := prefix + "_" + strings.ToUpper(fieldType.Name)
		envKey = strings.ReplaceAll(envKey, "-", "_")

		if field.Kind() == reflect.Struct {
			if err := applyEnvToStruct(envKey, field); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue // No override for this field
		}

		if err := setFieldFromEnv(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from env %s: %w", fieldType.Name, envKey, err)
		}
	}

	return nil
}

func setFieldFromEnv(field reflect.Value, envValue string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var intVal int64
		if _, err := fmt.Sscanf(envValue, "%d", &intVal); err != nil {
			return fmt.Errorf("invalid integer value: %s", envValue)
		}
		field.SetInt(intVal)
	case reflect.Bool:
		boolVal := strings.ToLower(envValue) == "true" || envValue == "1"
		field.SetBool(boolVal)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validator validates configuration
type Validator interface {
	Validate(config interface{}) error
}

// ValidatorFunc is a function that validates configuration
type ValidatorFunc func(config interface{}) error

func (f ValidatorFunc) Validate(config interface{}) error {
	return f(config)
}

// Validate validates configuration using the given validators
func Validate(config interface{}, validators ...Validator) error {
	for _, validator := range validators {
		if err := validator.Validate(config); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Driver.TickIntervalMS <= 0 {
		return fmt.Errorf("driver.tick_interval_ms must be positive, got %d", c.Driver.TickIntervalMS)
	}
	if c.Inspector.Enabled && c.Inspector.Addr == "" {
		return fmt.Errorf("inspector.addr is required when the inspector is enabled")
	}
	return nil
}
