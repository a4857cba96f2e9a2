package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stoat "stoat-client"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadConfigFile(t *testing.T) {
	path := writeConfig(t, `{"Token":"abc","TokenType":"bot","RedisAddress":"localhost:6379","RedisDB":2}`)

	cfg, err := readConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Token)
	assert.Equal(t, "localhost:6379", cfg.RedisAddress)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, "stoat:", cfg.ChannelPrefix)
}

func TestReadConfigFileErrors(t *testing.T) {
	_, err := readConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = readConfigFile(writeConfig(t, `{"Token":`))
	assert.Error(t, err)

	_, err = readConfigFile(writeConfig(t, `{"ChannelPrefix":"x"}`))
	assert.ErrorContains(t, err, "Token is empty")
}

func TestTokenType(t *testing.T) {
	typ, err := tokenType("")
	require.NoError(t, err)
	assert.Equal(t, stoat.UserToken, typ)

	typ, err = tokenType("bot")
	require.NoError(t, err)
	assert.Equal(t, stoat.BotToken, typ)

	_, err = tokenType("admin")
	assert.Error(t, err)
}
