package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facebook/flipper-sub000/internal/config"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.False(t, cfg.Redis.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inspector.yaml")
	content := `
listen: 127.0.0.1:9000
log_level: debug
log_format: json
poll_interval: 250ms
tree_select: true
archive_dir: dumps
redis:
  addr: localhost:6379
  db: 2
  lease_ttl: 30s
rate_limit:
  rps: 5
  burst: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.True(t, cfg.TreeSelect)
	assert.Equal(t, "dumps", cfg.ArchiveDir)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "inspector:events", cfg.Redis.Channel, "unset keys keep defaults")
	assert.Equal(t, 30*time.Second, cfg.Redis.LeaseTTL)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		invalid bool
	}{
		{name: "unknown key", content: "colour: red"},
		{name: "bad duration", content: "poll_interval: soon"},
		{name: "bad level", content: "log_level: loud", invalid: true},
		{name: "bad redis addr", content: "redis: {addr: 'not an address'}", invalid: true},
		{name: "negative rate", content: "rate_limit: {rps: -1}", invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.Parse([]byte(tt.content), config.Default())
			require.Error(t, err)
			var verrs validator.ValidationErrors
			assert.Equal(t, tt.invalid, errors.As(err, &verrs))
		})
	}
}
