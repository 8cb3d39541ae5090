package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "SEDAR_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "pkg", "forms")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(sub))

	_ = os.Unsetenv("SEDAR_TEST_ENV_LOAD")
	t.Cleanup(func() { _ = os.Unsetenv("SEDAR_TEST_ENV_LOAD") })

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "ok", os.Getenv("SEDAR_TEST_ENV_LOAD"))
}

func TestConfiguration_Defaults(t *testing.T) {
	c := &Configuration{}
	require.NoError(t, env.Parse(c))
	require.NoError(t, c.validate())
	require.Equal(t, "memory", c.Session.Storage)
	require.Equal(t, []string{"http://localhost:3000"}, c.CorsOrigins())
}

func TestConfiguration_ValidateRejectsRedisWithoutURL(t *testing.T) {
	t.Setenv("FORM_SESSION_STORAGE", "Redis")
	t.Setenv("REDIS_URL", "")
	c := &Configuration{}
	require.NoError(t, env.Parse(c))
	require.Error(t, c.validate())

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	c = &Configuration{}
	require.NoError(t, env.Parse(c))
	require.NoError(t, c.validate())
	require.Equal(t, "redis", c.Session.Storage)
}

func TestRateLimitOptions_Validate(t *testing.T) {
	require.Error(t, (&RateLimitOptions{GlobalRPS: -1, Storage: "memory"}).Validate())
	require.Error(t, (&RateLimitOptions{GlobalRPS: 10, Storage: "disk"}).Validate())
	require.Error(t, (&RateLimitOptions{GlobalRPS: 10, Storage: "redis"}).Validate())
	require.NoError(t, (&RateLimitOptions{GlobalRPS: 10, Storage: "redis", RedisURL: "redis://x"}).Validate())
}

func TestLogrusLogLevel(t *testing.T) {
	c := &Configuration{Log: LogOptions{Level: "debug"}}
	require.Equal(t, "debug", c.LogrusLogLevel().String())
	c.Log.Level = "nonsense"
	require.Equal(t, "error", c.LogrusLogLevel().String())
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
