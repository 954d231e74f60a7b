package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lex-dialog/internal/dialog"
	"lex-dialog/internal/repository"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, repository.BackendMemory, cfg.Store.Backend)
	require.Equal(t, 24*time.Hour, cfg.Store.SessionTTL)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Zero(t, cfg.HTTP.RateLimit)
	require.Equal(t, dialog.DefaultPolicy(), cfg.Dialog.Policy())
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("LEXD_STORE_BACKEND", "DynamoDB")
	t.Setenv("LEXD_STORE_TABLE", "lex-sessions")
	t.Setenv("LEXD_STORE_SESSION_TTL", "30m")
	t.Setenv("LEXD_DIALOG_ON_DENY", "Fail")
	t.Setenv("LEXD_DIALOG_MAX_TURNS", "50")
	t.Setenv("LEXD_HTTP_RATE_LIMIT", "20")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, repository.BackendDynamoDB, cfg.Store.Backend)
	require.Equal(t, "lex-sessions", cfg.Store.Table)
	require.Equal(t, 30*time.Minute, cfg.Store.SessionTTL)
	require.Equal(t, dialog.DenyFail, cfg.Dialog.Policy().OnDeny)
	require.Equal(t, 50, cfg.Dialog.MaxTurns)
	require.Equal(t, 20, cfg.HTTP.RateLimit)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  backend: redis
  redis_addr: cache:6379
catalog:
  dir: ./bots
dialog:
  confidence_threshold: 0.6
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, repository.BackendRedis, cfg.Store.Backend)
	require.Equal(t, "cache:6379", cfg.Store.RedisAddr)
	require.Equal(t, "./bots", cfg.Catalog.Dir)
	require.InDelta(t, 0.6, cfg.Dialog.ConfidenceThreshold, 1e-9)
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"LEXD_STORE_BACKEND": "sqlite"}},
		{"dynamodb without table", map[string]string{"LEXD_STORE_BACKEND": "dynamodb"}},
		{"unknown deny policy", map[string]string{"LEXD_DIALOG_ON_DENY": "Ignore"}},
		{"threshold above one", map[string]string{"LEXD_DIALOG_CONFIDENCE_THRESHOLD": "1.5"}},
		{"zero attempts", map[string]string{"LEXD_DIALOG_MAX_ATTEMPTS": "0"}},
		{"negative turns", map[string]string{"LEXD_DIALOG_MAX_TURNS": "-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
