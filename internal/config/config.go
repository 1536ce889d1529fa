// Package config provides centralized configuration management for a pipeline run.
// It loads one YAML file at startup, lets environment variables override
// individual keys, and validates all settings to fail fast on misconfiguration.
// The resulting *Config is passed explicitly to every phase; nothing re-reads it.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/personetl/internal/core"
)

// ReferenceDateLayout is the layout of transform.reference_date.
const ReferenceDateLayout = "2006-01-02"

// Config holds all pipeline configuration.
type Config struct {
	File      FileConfig      `yaml:"file"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Database  DatabaseConfig  `yaml:"database"`
	Transform TransformConfig `yaml:"transform"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// FileConfig holds the locations of the input feed and the produced artifacts.
type FileConfig struct {
	// Input is the pipe-delimited feed to read (required)
	Input string `yaml:"input" env:"PERSONETL_INPUT" validate:"required"`

	// Output is where the serialized documents are written (required)
	Output string `yaml:"output" env:"PERSONETL_OUTPUT" validate:"required"`

	// Quarantine is the CSV receiving rejected rows (default: skipped_rows.csv)
	Quarantine string `yaml:"quarantine" env:"PERSONETL_QUARANTINE" env-default:"skipped_rows.csv" validate:"required"`

	// Delimiter separates input fields (default: |)
	Delimiter string `yaml:"delimiter" env:"PERSONETL_DELIMITER" env-default:"|" validate:"len=1"`
}

// MongoConfig holds document store connection settings.
type MongoConfig struct {
	// URL is the connection endpoint, without credentials (required)
	URL string `yaml:"url" env:"MONGO_URL" validate:"required,url"`

	// Username and Password are optional but must be given together
	Username string `yaml:"username" env:"MONGO_USERNAME" validate:"required_with=Password"`
	Password string `yaml:"password" env:"MONGO_PASSWORD" validate:"required_with=Username"`

	// Timeout bounds server selection and the reachability ping (default: 5s)
	Timeout time.Duration `yaml:"timeout" env:"MONGO_TIMEOUT" env-default:"5s" validate:"gt=0"`
}

// DatabaseConfig names the load target.
type DatabaseConfig struct {
	Name       string `yaml:"name" env:"DATABASE_NAME" validate:"required"`
	Collection string `yaml:"collection" env:"DATABASE_COLLECTION" validate:"required"`
}

// TransformConfig holds derivation settings.
type TransformConfig struct {
	// ReferenceDate is the date ages are computed against (default: 2024-03-01)
	ReferenceDate string `yaml:"reference_date" env:"PERSONETL_REFERENCE_DATE" env-default:"2024-03-01" validate:"required,datetime=2006-01-02"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text" validate:"oneof=text json"`
}

// HasCredentials reports whether the store should be reached authenticated.
func (m *MongoConfig) HasCredentials() bool {
	return m.Username != "" && m.Password != ""
}

// ReferenceDate returns the configured reference date at UTC midnight.
// Falls back to core.DefaultReferenceDate when unset or unparseable;
// Validate rejects the latter.
func (c *Config) ReferenceDate() time.Time {
	t, err := time.Parse(ReferenceDateLayout, c.Transform.ReferenceDate)
	if err != nil {
		return core.DefaultReferenceDate
	}
	return t
}

// DelimiterRune returns the input field separator.
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.File.Delimiter)
	if r == utf8.RuneError {
		return '|'
	}
	return r
}

// String returns a safe string representation of the config for logging.
// The password and any credentials embedded in the URL are masked.
func (c *Config) String() string {
	password := ""
	if c.Mongo.Password != "" {
		password = "[MASKED]"
	}
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("File: {Input: %q, Output: %q, Quarantine: %q}, ",
		c.File.Input, c.File.Output, c.File.Quarantine))
	b.WriteString(fmt.Sprintf("Mongo: {URL: %q, Username: %q, Password: %q, Timeout: %s}, ",
		maskURL(c.Mongo.URL), c.Mongo.Username, password, c.Mongo.Timeout))
	b.WriteString(fmt.Sprintf("Database: {Name: %q, Collection: %q}, ",
		c.Database.Name, c.Database.Collection))
	b.WriteString(fmt.Sprintf("Transform: {ReferenceDate: %q}, ", c.Transform.ReferenceDate))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

// maskURL hides the userinfo of a connection URL.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.User("MASKED")
	return u.String()
}
