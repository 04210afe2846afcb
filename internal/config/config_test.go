package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfigFile(t, `{
		"db_host": "localhost",
		"db_port": 5432,
		"db_name": "kcchat",
		"db_user": "kcchat",
		"db_pass": "secret",
		"bot_name": "kcbot",
		"bot_color": "#ffffff",
		"max_chat_length": 300
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "kcbot", cfg.BotName)
	assert.Equal(t, 300, cfg.MaxChatLength)
	assert.False(t, cfg.HasSSL())
}

func TestLoadMissingRequiredField(t *testing.T) {
	path := writeConfigFile(t, `{"bot_name": "kcbot", "max_chat_length": 300}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db_host")
}

func TestLoadInvalidMaxChatLength(t *testing.T) {
	path := writeConfigFile(t, `{
		"db_host": "localhost",
		"db_name": "kcchat",
		"db_user": "kcchat",
		"bot_name": "kcbot",
		"max_chat_length": 0
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_chat_length")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestHasSSLRequiresBothKeyAndCert(t *testing.T) {
	cfg := &Config{SSLKey: "key.pem"}
	assert.False(t, cfg.HasSSL())

	cfg.SSLCrt = "cert.pem"
	assert.True(t, cfg.HasSSL())
}
