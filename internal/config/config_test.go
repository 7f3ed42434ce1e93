package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REMINDME_APP_ID", "REMINDME_NOTIFY_TARGET", "REMINDME_TELEGRAM_TOKEN",
		"REMINDME_TELEGRAM_ENABLED", "REMINDME_DB_PATH", "REMINDME_LOG_LEVEL",
		"REMINDME_GATEWAY_PORT", "REMINDME_SCHEDULER_INTERVAL",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := DefaultConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultHost, cfg.Gateway.Host)
	assert.Equal(t, DefaultPort, cfg.Gateway.Port)
	assert.Equal(t, DefaultRetries, cfg.Notify.Retries)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Empty(t, cfg.Skill.AppID, "app id check is off by default")
	assert.False(t, cfg.Notify.Telegram.Enabled)
	assert.Equal(t, filepath.Join(ConfigDir(), "data", "remindme.db"), cfg.Store.DBPath)
}

func TestLoadConfig_NoFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Gateway.Port)
	assert.Equal(t, DefaultSchedulerInterval, cfg.Scheduler.Interval)
	assert.Equal(t, filepath.Join(tmpDir, ".remindme", "data", "remindme.db"), cfg.Store.DBPath)
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	clearEnv(t)

	testCfg := map[string]any{
		"skill": map[string]any{"appId": "amzn1.ask.skill.abc"},
		"notify": map[string]any{
			"target":   "42",
			"retries":  5,
			"telegram": map[string]any{"enabled": true, "token": "tg-token"},
		},
		"gateway":   map[string]any{"port": 9000},
		"scheduler": map[string]any{"enabled": false, "interval": "5s"},
	}
	data, err := json.Marshal(testCfg)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(ConfigDir(), 0755))
	require.NoError(t, os.WriteFile(ConfigPath(), data, 0644))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "amzn1.ask.skill.abc", cfg.Skill.AppID)
	assert.Equal(t, "42", cfg.Notify.Target)
	assert.Equal(t, 5, cfg.Notify.Retries)
	assert.True(t, cfg.Notify.Telegram.Enabled)
	assert.Equal(t, "tg-token", cfg.Notify.Telegram.Token)
	assert.Equal(t, 9000, cfg.Gateway.Port)
	assert.Equal(t, DefaultHost, cfg.Gateway.Host, "unset keys keep defaults")
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.SweepInterval())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	clearEnv(t)

	t.Setenv("REMINDME_APP_ID", "amzn1.ask.skill.env")
	t.Setenv("REMINDME_TELEGRAM_TOKEN", "env-token")
	t.Setenv("REMINDME_TELEGRAM_ENABLED", "true")
	t.Setenv("REMINDME_NOTIFY_TARGET", "777")
	t.Setenv("REMINDME_DB_PATH", filepath.Join(tmpDir, "custom.db"))
	t.Setenv("REMINDME_GATEWAY_PORT", "8088")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "amzn1.ask.skill.env", cfg.Skill.AppID)
	assert.Equal(t, "env-token", cfg.Notify.Telegram.Token)
	assert.True(t, cfg.Notify.Telegram.Enabled)
	assert.Equal(t, "777", cfg.Notify.Target)
	assert.Equal(t, filepath.Join(tmpDir, "custom.db"), cfg.Store.DBPath)
	assert.Equal(t, 8088, cfg.Gateway.Port)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadConfigFrom(path)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	clearEnv(t)

	cfg := DefaultConfig()
	cfg.Skill.AppID = "amzn1.ask.skill.saved"
	cfg.Notify.Target = "+15550100"
	require.NoError(t, SaveConfig(cfg))

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSchedulerConfig_SweepInterval(t *testing.T) {
	assert.Equal(t, 30*time.Second, SchedulerConfig{}.SweepInterval())
	assert.Equal(t, 30*time.Second, SchedulerConfig{Interval: "bogus"}.SweepInterval())
	assert.Equal(t, time.Minute, SchedulerConfig{Interval: "1m"}.SweepInterval())
}

func TestGatewayConfig_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", GatewayConfig{Host: "127.0.0.1", Port: 8080}.Addr())
}
