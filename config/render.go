package config

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"github.com/vrooli/jobs/errors"
)

// Render encodes the effective configuration as TOML
func Render(cfg *Config) (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return "", errors.Wrap(err, "failed to encode config")
	}
	return buf.String(), nil
}

// Parse decodes a TOML document into a Config without applying defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	return &cfg, nil
}
