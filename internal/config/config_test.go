package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/recommit/pkg/recommit"
)

func TestLoad_AllFields(t *testing.T) {
	dir := t.TempDir()
	content := `connection:
  host: myhost
  port: 26258
  username: myuser
  database: bank
  sslmode: require
  auth_method: aws-iam
  aws_region: us-west-2

retry:
  max_attempts: 20
  base_delay: 25ms
  multiplier: 1.5
  jitter_factor: 0.3
  max_delay: 5s
  max_elapsed: 2m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "myhost", cfg.Connection.Host)
	assert.Equal(t, 26258, cfg.Connection.Port)
	assert.Equal(t, "myuser", cfg.Connection.Username)
	assert.Equal(t, "bank", cfg.Connection.Database)
	assert.Equal(t, "require", cfg.Connection.SSLMode)
	assert.Equal(t, "aws-iam", cfg.Connection.AuthMethod)
	assert.Equal(t, "us-west-2", cfg.Connection.AWSRegion)

	policy, err := cfg.Retry.Policy()
	require.NoError(t, err)
	assert.Equal(t, 20, policy.MaxAttempts)
	assert.Equal(t, 25*time.Millisecond, policy.BaseDelay)
	assert.Equal(t, 1.5, policy.Multiplier)
	assert.Equal(t, 0.3, policy.JitterFactor)
	assert.Equal(t, 5*time.Second, policy.MaxDelay)
	assert.Equal(t, 2*time.Minute, policy.MaxElapsed)
}

func TestLoad_MinimalYAML(t *testing.T) {
	dir := t.TempDir()
	content := `connection:
  host: localhost
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "localhost", cfg.Connection.Host)
	assert.Equal(t, 0, cfg.Connection.Port)

	policy, err := cfg.Retry.Policy()
	require.NoError(t, err)
	assert.Equal(t, recommit.DefaultPolicy(), policy)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrConfigNotFound), "expected ErrConfigNotFound, got: %v", err)
	assert.Nil(t, cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{{invalid"), 0644))

	cfg, err := Load(dir)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(""), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, ProjectConfig{}, *cfg)
}

func TestRetryConfig_InvalidDuration(t *testing.T) {
	cfg := RetryConfig{BaseDelay: "not-a-duration"}

	_, err := cfg.Policy()
	assert.ErrorIs(t, err, recommit.ErrInvalidConfig)
}

func TestRetryConfig_ValidationPropagates(t *testing.T) {
	cfg := RetryConfig{Multiplier: 0.5}

	_, err := cfg.Policy()
	assert.ErrorIs(t, err, recommit.ErrInvalidConfig)
}
