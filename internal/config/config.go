package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

//go:embed schema.json
var schemaJSON string

// Config is the full installer configuration, built once at startup and
// treated as read-only by every pipeline step.
type Config struct {
	Distribution string           `yaml:"distribution" json:"distribution"`
	Repository   RepositoryConfig `yaml:"repository" json:"repository"`
	Packages     PackagesConfig   `yaml:"packages" json:"packages"`
	Retry        RetryConfig      `yaml:"retry" json:"retry"`
	Logging      LoggingConfig    `yaml:"logging" json:"logging"`
	Service      ServiceConfig    `yaml:"service" json:"service"`
}

// RepositoryConfig describes the APT repository and signing key to register.
type RepositoryConfig struct {
	URL         string `yaml:"url" json:"url"`
	KeyURL      string `yaml:"key_url" json:"key_url"`
	KeyringPath string `yaml:"keyring_path" json:"keyring_path"`
	SourcesPath string `yaml:"sources_path" json:"sources_path"`
	Channel     string `yaml:"channel" json:"channel"`
}

// PackagesConfig lists the package sets the pipeline touches.
type PackagesConfig struct {
	Install       []string `yaml:"install" json:"install"`
	Prerequisites []string `yaml:"prerequisites" json:"prerequisites"`
	Conflicting   []string `yaml:"conflicting" json:"conflicting"`
}

// RetryConfig bounds the retry wrapper around network-dependent steps.
type RetryConfig struct {
	Attempts       int `yaml:"attempts" json:"attempts"`
	BackoffSeconds int `yaml:"backoff_seconds" json:"backoff_seconds"`
}

// LoggingConfig controls the console and file log sinks.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// ServiceConfig names the managed service and its access-control group.
type ServiceConfig struct {
	Name  string `yaml:"name" json:"name"`
	Group string `yaml:"group" json:"group"`
}

// Default returns the built-in configuration for a stock Ubuntu host.
func Default() *Config {
	return &Config{
		Distribution: "ubuntu",
		Repository: RepositoryConfig{
			URL:         "https://download.docker.com/linux/ubuntu",
			KeyURL:      "https://download.docker.com/linux/ubuntu/gpg",
			KeyringPath: "/etc/apt/keyrings/docker.asc",
			SourcesPath: "/etc/apt/sources.list.d/docker.list",
			Channel:     "stable",
		},
		Packages: PackagesConfig{
			Install: []string{
				"docker-ce",
				"docker-ce-cli",
				"containerd.io",
				"docker-buildx-plugin",
				"docker-compose-plugin",
			},
			Prerequisites: []string{"ca-certificates", "curl", "gnupg"},
			Conflicting: []string{
				"docker.io",
				"docker-doc",
				"docker-compose",
				"docker-compose-v2",
				"podman-docker",
				"containerd",
				"runc",
			},
		},
		Retry: RetryConfig{
			Attempts:       3,
			BackoffSeconds: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "/var/log/docker-provisioner.log",
		},
		Service: ServiceConfig{
			Name:  "docker",
			Group: "docker",
		},
	}
}

// Load reads and validates the YAML configuration at path. An empty path
// returns the defaults. A file only needs to carry the fields it overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks raw YAML config data against the embedded JSON schema.
func Validate(data []byte) error {
	jsonData, err := sigsyaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("converting YAML to JSON: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("decoding config document: %w", err)
	}

	schema, err := jsonschema.CompileString("schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}
