package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/billbuddy/internal/config"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billbuddy.log")

	log, err := New(config.LogConfig{Level: "info", File: path})
	require.NoError(t, err)

	log.Infow("login succeeded", "user_id", 7)
	log.Debugw("hidden at info level")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "login succeeded")
	assert.Contains(t, string(data), `"user_id":7`)
	assert.NotContains(t, string(data), "hidden at info level")
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}
