package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"DATA_DIR", "SQLITE_PATH", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "CRON_DIGEST", "HTTPS_PROXY"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, "", cfg.Storage.SQLitePath)
	assert.Equal(t, "0 0 21 * * *", cfg.Schedule.DigestCron)
	assert.False(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  data_dir: /var/lib/grid
  sqlite_path: /var/lib/grid/grid.db
telegram:
  bot_token: file-token
  chat_id: "123"
schedule:
  digest_cron: "0 30 8 * * *"
proxy: http://proxy:3128
`), 0644))
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("DATA_DIR", "/tmp/grid")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/grid", cfg.Storage.DataDir)
	assert.Equal(t, "/var/lib/grid/grid.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "123", cfg.Telegram.ChatID)
	assert.Equal(t, "0 30 8 * * *", cfg.Schedule.DigestCron)
	assert.Equal(t, "http://proxy:3128", cfg.Proxy)
	assert.True(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	cfg.Telegram.BotToken = "only-token"
	assert.Error(t, cfg.Validate())

	cfg.Telegram.ChatID = "1"
	assert.NoError(t, cfg.Validate())

	cfg.Schedule.DigestCron = "not a cron"
	assert.Error(t, cfg.Validate())

	cfg.Schedule.DigestCron = "@daily"
	assert.NoError(t, cfg.Validate())
}
