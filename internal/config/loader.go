package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/JonMunkholm/personetl/internal/core"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is set.
const DefaultPath = "config.yaml"

// ResolvePath picks the config file: the flag value, then CONFIG_PATH, then DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result.
// Every failure is a config-phase error wrapping core.ErrConfig.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, core.NewPhaseError(core.PhaseConfig, "", fmt.Errorf("%w: no config path given", core.ErrConfig))
	}
	if _, err := os.Stat(path); err != nil {
		return nil, core.NewPhaseError(core.PhaseConfig, path, fmt.Errorf("%w: config file not found: %v", core.ErrConfig, err))
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, core.NewPhaseError(core.PhaseConfig, path, fmt.Errorf("%w: %v", core.ErrConfig, err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, core.NewPhaseError(core.PhaseConfig, path, err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is valid.
// Returns an error wrapping core.ErrConfig that describes all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", core.ErrConfig, err)
		}
		for _, fe := range verrs {
			errs = append(errs, describe(fe))
		}
	}

	// Artifacts must not overwrite the feed or each other
	if c.File.Input != "" && samePath(c.File.Input, c.File.Output) {
		errs = append(errs, fmt.Sprintf("file.output (%q) must differ from file.input", c.File.Output))
	}
	if c.File.Quarantine != "" && samePath(c.File.Quarantine, c.File.Input) {
		errs = append(errs, fmt.Sprintf("file.quarantine (%q) must differ from file.input", c.File.Quarantine))
	}
	if c.File.Quarantine != "" && samePath(c.File.Quarantine, c.File.Output) {
		errs = append(errs, fmt.Sprintf("file.quarantine (%q) must differ from file.output", c.File.Quarantine))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: validation failed:\n  - %s", core.ErrConfig, strings.Join(errs, "\n  - "))
	}

	return nil
}

// newValidator reports fields by their YAML key so messages match the file.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// describe renders one validation failure as "key: problem".
func describe(fe validator.FieldError) string {
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", key, yamlKey(fe.Param()))
	case "oneof":
		return fmt.Sprintf("%s (%q) must be one of: %s", key, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return fmt.Sprintf("%s (%q) must be a date in the form YYYY-MM-DD", key, fe.Value())
	case "url":
		return fmt.Sprintf("%s (%q) must be a connection URL", key, fe.Value())
	case "len":
		return fmt.Sprintf("%s (%q) must be exactly %s character", key, fe.Value(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be positive", key)
	default:
		return fmt.Sprintf("%s failed %q check", key, fe.Tag())
	}
}

// yamlKey maps a Go field name used in a cross-field tag to its YAML key.
func yamlKey(field string) string {
	return strings.ToLower(field)
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
