package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sample = `
app:
  name: iqplay
  env: production
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 5m
catalogue:
  path: questions.json
quiz:
  blockSize: 5
  turnSeconds: 15
  readyDelay: 1s
auth:
  jwtSecret: from-file
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)
	require.Equal(t, "production", cfg.App.Env)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, 15, cfg.Quiz.TurnSeconds)
	require.Equal(t, "from-file", cfg.Auth.JWTSecret)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("QUIZ_TURN_SECONDS", "20")
	t.Setenv("POSTGRES_URL", "postgres://quiz@localhost/quizdb")

	cfg, err := Load(writeConfig(t))
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Auth.JWTSecret)
	require.Equal(t, 20, cfg.Quiz.TurnSeconds)
	require.Equal(t, "postgres://quiz@localhost/quizdb", cfg.Postgres.URL)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "iqplay", cfg.App.Name)
	require.Equal(t, "development", cfg.App.Env)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestTTLDuration(t *testing.T) {
	require.Equal(t, 5*time.Minute, TTLDuration("5m", time.Second))
	require.Equal(t, time.Second, TTLDuration("", time.Second))
	require.Equal(t, time.Second, TTLDuration("soon", time.Second))
}
