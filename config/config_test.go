package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "OBD2.csv", cfg.CodesFile)
	assert.Equal(t, "diagnostic_report.txt", cfg.ReportPath)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, time.Second, cfg.Suggestion.PollInterval)
	assert.Equal(t, 90*time.Second, cfg.Suggestion.MaxWait)
	assert.Equal(t, 3, cfg.Suggestion.PollRetries)
	assert.False(t, cfg.Suggestion.FallbackOnError)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("CODES_FILE", "/data/codes.csv")
	t.Setenv("SUGGESTION_MAX_WAIT", "2m")
	t.Setenv("SUGGESTION_FALLBACK_ON_ERROR", "true")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("PORT", "8080")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "/data/codes.csv", cfg.CodesFile)
	assert.Equal(t, 2*time.Minute, cfg.Suggestion.MaxWait)
	assert.True(t, cfg.Suggestion.FallbackOnError)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORS.AllowOrigins)
	assert.Equal(t, "debug", cfg.Server.GinMode)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: "127.0.0.1:9000"
suggestion:
  poll_interval: 500ms
  max_wait: 30s
  poll_retries: 1
cors:
  allow_origins:
    - http://garage.example
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 500*time.Millisecond, cfg.Suggestion.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Suggestion.MaxWait)
	assert.Equal(t, 1, cfg.Suggestion.PollRetries)
	assert.Equal(t, []string{"http://garage.example"}, cfg.CORS.AllowOrigins)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("SUGGESTION_POLL_INTERVAL", "10s")
	t.Setenv("SUGGESTION_MAX_WAIT", "1s")
	_, err := Load(viper.New())
	assert.ErrorContains(t, err, "max_wait")
}

func bindAddrFlag(t *testing.T, v *viper.Viper, args ...string) {
	t.Helper()
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.String("addr", ":5000", "Listen address")
	require.NoError(t, fs.Parse(args))
	require.NoError(t, v.BindPFlag("server.addr", fs.Lookup("addr")))
}

func TestLoad_AddrFlagBeatsPort(t *testing.T) {
	t.Setenv("PORT", "9000")

	v := viper.New()
	bindAddrFlag(t, v, "--addr", ":8080")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	v = viper.New()
	bindAddrFlag(t, v)
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestLoad_ServerAddrEnvBeatsPort(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SERVER_ADDR", "127.0.0.1:7000")
	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
}

func TestValidate_GinMode(t *testing.T) {
	t.Setenv("SERVER_GIN_MODE", "verbose")
	_, err := Load(viper.New())
	assert.ErrorContains(t, err, "server.gin_mode")

	for _, mode := range []string{"debug", "release", "test"} {
		t.Setenv("SERVER_GIN_MODE", mode)
		cfg, err := Load(viper.New())
		require.NoError(t, err, mode)
		assert.Equal(t, mode, cfg.Server.GinMode)
	}
}
