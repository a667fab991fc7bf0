package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Len(t, cfg.Triggers, 6)
	assert.Equal(t, 300, cfg.EscalationInterval)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, models.SeverityRed, cfg.BaseSeverities()[models.CategorySecurityBreach])
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ews.json")
	body := `{
		"escalationInterval": 30,
		"severityDefaults": {"RegulatoryChange": "Orange"},
		"server": {"port": 9090},
		"channels": [{"name": "ops", "type": "webhook", "enabled": true, "settings": {"url": "http://example.invalid"}}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.EscalationInterval)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, models.SeverityOrange, cfg.BaseSeverities()[models.CategoryRegulatoryChange])
	// untouched keys keep their defaults
	assert.Equal(t, models.SeverityRed, cfg.BaseSeverities()[models.CategorySecurityBreach])
	require.Len(t, cfg.Channels, 1)
	assert.Equal(t, "webhook", cfg.Channels[0].Type)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ews.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server": {"port": 9090}}`), 0o644))
	t.Setenv("EWS_SERVER_PORT", "7070")
	t.Setenv("EWS_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown severity", `{"severityDefaults": {"BigTechThreat": "Purple"}}`},
		{"unknown category", `{"severityDefaults": {"Weather": "Red"}}`},
		{"zero interval", `{"monitoringIntervals": {"critical": 0}}`},
		{"bad source type", `{"sources": [{"name": "x", "type": "ftp", "tier": "high"}]}`},
		{"unknown oversight role", `{"stakeholderRouting": {"oversight": "INTERN"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ews.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			_, err := Load(path)
			require.Error(t, err)

			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %T", err)
		})
	}
}

func TestConfig_StakeholderDirectory(t *testing.T) {
	cfg := Default()
	dir := cfg.StakeholderDirectory()
	require.Len(t, dir, 8)

	var sales models.Stakeholder
	for _, s := range dir {
		if s.Role == models.RoleSales {
			sales = s
		}
	}
	assert.Equal(t, models.SeverityOrange, sales.Thresholds[models.CategoryCompetitiveThreat])
	addr, ok := sales.Contact("email")
	assert.True(t, ok)
	assert.Equal(t, "sales@company.com", addr)
}

func TestConfig_RoutingTable(t *testing.T) {
	table := Default().RoutingTable()
	assert.Equal(t, []models.Role{models.RoleCEO, models.RoleCTO, models.RoleSales}, table[models.CategoryBigTechThreat])
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "early-warning.example.json"))
	require.NoError(t, err)

	assert.Len(t, cfg.Channels, 4)
	assert.Len(t, cfg.Sources, 4)
	assert.Len(t, cfg.Triggers, 6, "triggers fall back to the built-in set")
	assert.Equal(t, 15*60, int(cfg.PollInterval(TierMedium).Seconds()))
	assert.Equal(t, 30*24*time.Hour, cfg.SeenRetention())
}
