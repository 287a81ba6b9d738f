package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "", cfg.BindAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	assert.Equal(t, int64(1<<20), cfg.MaxClipBytes)
	assert.Equal(t, 512, cfg.MaxConnections)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("BIND_ADDR", "127.0.0.1")
	t.Setenv("MAX_CLIP_BYTES", "2048")
	t.Setenv("MAX_CONNECTIONS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.Equal(t, int64(2048), cfg.MaxClipBytes)
	assert.Equal(t, 5, cfg.MaxConnections)
	assert.Equal(t, "127.0.0.1:8081", cfg.ListenAddr())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero body cap", "MAX_BODY_BYTES", "0"},
		{"zero clip cap", "MAX_CLIP_BYTES", "0"},
		{"clip cap above body cap", "MAX_CLIP_BYTES", "99999999999"},
		{"negative connections", "MAX_CONNECTIONS", "-1"},
		{"zero rate limit", "RATE_LIMIT_PER_SECOND", "0"},
		{"zero burst", "RATE_LIMIT_BURST", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestListenAddr_AllInterfacesByDefault(t *testing.T) {
	cfg := &Config{Port: "3000"}
	assert.Equal(t, ":3000", cfg.ListenAddr())
}
