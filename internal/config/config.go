package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/recommit/pkg/recommit"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type ConnectionConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Database       string `yaml:"database"`
	SSLMode        string `yaml:"sslmode"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	AzureTenantID  string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string `yaml:"azure_client_id,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	GoogleInstance string `yaml:"google_instance,omitempty"`
}

// RetryConfig mirrors recommit.Policy with yaml-friendly duration strings
// ("50ms", "2s"). Zero fields keep the defaults.
type RetryConfig struct {
	MaxAttempts  int     `yaml:"max_attempts,omitempty"`
	BaseDelay    string  `yaml:"base_delay,omitempty"`
	Multiplier   float64 `yaml:"multiplier,omitempty"`
	JitterFactor float64 `yaml:"jitter_factor,omitempty"`
	MaxDelay     string  `yaml:"max_delay,omitempty"`
	MaxElapsed   string  `yaml:"max_elapsed,omitempty"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Retry      RetryConfig      `yaml:"retry"`
}

const ConfigFileName = "recommit.yaml"

func Load(sourcePath string) (*ProjectConfig, error) {
	configPath := filepath.Join(sourcePath, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Policy converts the yaml retry block to a validated recommit.Policy,
// starting from the defaults and overriding only the fields the file sets.
func (c *RetryConfig) Policy() (recommit.Policy, error) {
	policy := recommit.DefaultPolicy()

	if c.MaxAttempts > 0 {
		policy.MaxAttempts = c.MaxAttempts
	}
	if c.Multiplier > 0 {
		policy.Multiplier = c.Multiplier
	}
	if c.JitterFactor > 0 {
		policy.JitterFactor = c.JitterFactor
	}

	var err error
	if policy.BaseDelay, err = overrideDuration(policy.BaseDelay, c.BaseDelay, "base_delay"); err != nil {
		return recommit.Policy{}, err
	}
	if policy.MaxDelay, err = overrideDuration(policy.MaxDelay, c.MaxDelay, "max_delay"); err != nil {
		return recommit.Policy{}, err
	}
	if policy.MaxElapsed, err = overrideDuration(policy.MaxElapsed, c.MaxElapsed, "max_elapsed"); err != nil {
		return recommit.Policy{}, err
	}

	if err := policy.Validate(); err != nil {
		return recommit.Policy{}, err
	}
	return policy, nil
}

func overrideDuration(current time.Duration, value, field string) (time.Duration, error) {
	if value == "" {
		return current, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, recommit.ErrInvalidConfig)
	}
	return d, nil
}
