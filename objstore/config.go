package objstore

import (
	"net/url"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Config identifies the endpoint and signing principal for one client.
// Values are fixed at client construction and never mutated.
type Config struct {
	// Endpoint is the base URL of the S3-compatible service, e.g.
	// "https://s3.us-east-1.amazonaws.com" or "http://localhost:9000".
	Endpoint string `env:"OBJSTORE_ENDPOINT"`

	AccessKeyID     string `env:"OBJSTORE_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"OBJSTORE_SECRET_ACCESS_KEY"`

	Bucket string `env:"OBJSTORE_BUCKET"`
	Region string `env:"OBJSTORE_REGION" envDefault:"us-east-1"`
}

// ConfigFromEnv reads the OBJSTORE_* environment variables and
// validates the result.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, &ConfigError{Field: "environment", Message: err.Error()}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return &ConfigError{Field: "endpoint", Message: "is required"}
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Field: "endpoint", Message: "must be an absolute URL"}
	}
	if strings.TrimSpace(c.AccessKeyID) == "" {
		return &ConfigError{Field: "access_key_id", Message: "is required"}
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		return &ConfigError{Field: "secret_access_key", Message: "is required"}
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return &ConfigError{Field: "bucket", Message: "is required"}
	}
	if strings.TrimSpace(c.Region) == "" {
		return &ConfigError{Field: "region", Message: "is required"}
	}
	return nil
}
