package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stellarlinkco/remindme/internal/skill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, key := range []string{
		"REMINDME_APP_ID", "REMINDME_NOTIFY_TARGET", "REMINDME_TELEGRAM_TOKEN",
		"REMINDME_TELEGRAM_ENABLED", "REMINDME_DB_PATH",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("REMINDME_LOG_LEVEL", "error")
	return home
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const launchEvent = `{
  "version": "1.0",
  "session": {
    "new": true,
    "application": {"applicationId": "amzn1.ask.skill.test"},
    "user": {"userId": "user-1"}
  },
  "request": {"type": "LaunchRequest", "timestamp": "2026-10-17T12:00:00Z"}
}`

func TestOnboard(t *testing.T) {
	home := setupHome(t)

	out, err := execute(t, "", "onboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Created config")
	assert.FileExists(t, filepath.Join(home, ".remindme", "config.json"))
	assert.FileExists(t, filepath.Join(home, ".remindme", "data", "remindme.db"))

	out, err = execute(t, "", "onboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Config already exists")
}

func TestOnboard_CustomConfigPath(t *testing.T) {
	setupHome(t)
	path := filepath.Join(t.TempDir(), "custom.json")

	out, err := execute(t, "", "--config", path, "onboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Created config: "+path)
	assert.FileExists(t, path)
}

func TestStatus(t *testing.T) {
	setupHome(t)

	out, err := execute(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "App ID: not set")
	assert.Contains(t, out, "Notify target: user phone number")
	assert.Contains(t, out, "Telegram: enabled=false token=not set")
	assert.Contains(t, out, "Store: not found")

	_, err = execute(t, "", "onboard")
	require.NoError(t, err)

	t.Setenv("REMINDME_TELEGRAM_TOKEN", "123456:ABCDEFGH")
	out, err = execute(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Pending reminders: 0")
	assert.Contains(t, out, "token=1234...EFGH")
}

func TestStatus_BadConfig(t *testing.T) {
	home := setupHome(t)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".remindme"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".remindme", "config.json"), []byte("{"), 0644))

	out, err := execute(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Config: error")
}

func TestInvoke_Stdin(t *testing.T) {
	setupHome(t)

	out, err := execute(t, launchEvent, "invoke")
	require.NoError(t, err)

	var env skill.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, "1.0", env.Version)
	assert.Contains(t, env.Response.OutputSpeech.Text, "Welcome")
	assert.False(t, env.Response.ShouldEndSession)
}

func TestInvoke_File(t *testing.T) {
	setupHome(t)
	path := filepath.Join(t.TempDir(), "event.json")
	ev := strings.Replace(launchEvent, `"LaunchRequest"`, `"IntentRequest", "intent": {"name": "AMAZON.HelpIntent"}`, 1)
	require.NoError(t, os.WriteFile(path, []byte(ev), 0644))

	out, err := execute(t, "", "invoke", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "RemindMe at 10pm")
}

func TestInvoke_SessionEndedPrintsNothing(t *testing.T) {
	setupHome(t)
	ev := strings.Replace(launchEvent, `"LaunchRequest"`, `"SessionEndedRequest"`, 1)

	out, err := execute(t, ev, "invoke")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestInvoke_Errors(t *testing.T) {
	setupHome(t)

	_, err := execute(t, "{not json", "invoke")
	assert.ErrorContains(t, err, "decode event")

	_, err = execute(t, "", "invoke", "--file", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "open event")

	ev := strings.Replace(launchEvent, `"LaunchRequest"`, `"IntentRequest", "intent": {"name": "OrderPizza"}`, 1)
	_, err = execute(t, ev, "invoke")
	assert.ErrorIs(t, err, skill.ErrUnsupportedIntent)
}

func TestSweep(t *testing.T) {
	setupHome(t)

	out, err := execute(t, "", "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Delivered: 0")
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger("loud")
	assert.Error(t, err)
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"", "not set"},
		{"short", "set"},
		{"123456:ABCDEFGH", "1234...EFGH"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maskToken(tt.token), tt.token)
	}
}
