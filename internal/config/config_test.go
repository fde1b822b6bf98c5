package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"jwt_secret": "secret",
		"database": {"host": "localhost", "port": 5432, "user": "accountd", "dbname": "accountd"}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 72, cfg.JWTTTLHours)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.False(t, cfg.ExposeTokens)
	require.Empty(t, cfg.TokenCleanupCron)
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing jwt_secret", `{"port": 8080, "database": {"host": "localhost"}}`},
		{"missing port", `{"jwt_secret": "secret", "database": {"host": "localhost"}}`},
		{"missing database", `{"port": 8080, "jwt_secret": "secret"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
