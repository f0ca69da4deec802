package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-pgx-server/internal/domain"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	manager, err := NewManager()
	require.NoError(t, err)
	return manager
}

func TestManager_Defaults(t *testing.T) {
	manager := newManager(t)
	config := manager.GetConfig()

	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)

	assert.Equal(t, "sqlite", config.Database.Driver)
	assert.Equal(t, "./data/pharmaguard.db", config.Database.Path)

	assert.Equal(t, "https://api.groq.com/openai/v1", config.LLM.BaseURL)
	assert.Equal(t, "llama-3.3-70b-versatile", config.LLM.Model)
	assert.Equal(t, 3, config.LLM.MaxRetries)
	assert.Equal(t, 600, config.LLM.MaxTokens)
	assert.InDelta(t, 0.2, config.LLM.Temperature, 1e-9)

	assert.False(t, config.Cache.RedisEnabled)
	assert.Equal(t, 24*time.Hour, config.Cache.DefaultTTL)
	assert.Equal(t, 512, config.Cache.MaxMemorySize)

	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
}

func TestManager_EnvironmentOverride(t *testing.T) {
	t.Setenv("PHARMAGUARD_SERVER_PORT", "9090")
	t.Setenv("PHARMAGUARD_LLM_MODEL", "llama-3.1-8b-instant")

	manager := newManager(t)
	config := manager.GetConfig()

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "llama-3.1-8b-instant", config.LLM.Model)
}

func TestManager_ValidateDefaults(t *testing.T) {
	manager := newManager(t)
	assert.NoError(t, manager.Validate())
}

func TestManager_ValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *domain.Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *domain.Config) { c.Database.Driver = "oracle" },
			wantErr: "unsupported database driver",
		},
		{
			name: "postgres without url",
			mutate: func(c *domain.Config) {
				c.Database.Driver = "postgres"
				c.Database.URL = ""
			},
			wantErr: "database url is required",
		},
		{
			name:    "missing model",
			mutate:  func(c *domain.Config) { c.LLM.Model = "" },
			wantErr: "llm model is required",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *domain.Config) { c.LLM.Temperature = 3.5 },
			wantErr: "temperature",
		},
		{
			name: "redis enabled without url",
			mutate: func(c *domain.Config) {
				c.Cache.RedisEnabled = true
				c.Cache.RedisURL = ""
			},
			wantErr: "redis url is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *domain.Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid logging level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := newManager(t)
			tt.mutate(manager.GetConfig())
			err := manager.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestManager_SectionAccessors(t *testing.T) {
	manager := newManager(t)
	assert.Equal(t, manager.GetConfig().Server, *manager.GetServerConfig())
	assert.Equal(t, manager.GetConfig().Database, *manager.GetDatabaseConfig())
	assert.Equal(t, manager.GetConfig().LLM, *manager.GetLLMConfig())
	assert.Equal(t, manager.GetConfig().Cache, *manager.GetCacheConfig())
}
