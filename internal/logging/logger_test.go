package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNew_WritesPerLevelFiles(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Options{Level: "info", Directory: dir, MaxSize: 1})
	require.NoError(t, err)

	log.Info("slide persisted")
	log.Warn("save failed")
	log.Debug("dropped")
	_ = log.Sync()

	info, err := os.ReadFile(filepath.Join(dir, "info.log"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "slide persisted")
	assert.NotContains(t, string(info), "save failed")

	warn, err := os.ReadFile(filepath.Join(dir, "warn.log"))
	require.NoError(t, err)
	assert.Contains(t, string(warn), "save failed")

	_, err = os.Stat(filepath.Join(dir, "debug.log"))
	assert.True(t, os.IsNotExist(err))
}
