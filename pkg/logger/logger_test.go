package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/foodonbus/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	lg, err := New(config.LogConfig{Level: "debug", Encoding: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	assert.True(t, lg.Core().Enabled(zapcore.DebugLevel))

	lg.Named("cart").Info("cart cleared")
	_ = lg.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"msg":"cart cleared"`), line)
	assert.True(t, strings.Contains(line, `"logger":"cart"`), line)
	assert.True(t, strings.Contains(line, `"timestamp"`), line)
}

func TestNewLevelFilters(t *testing.T) {
	lg, err := New(config.LogConfig{Level: "warn", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)

	assert.False(t, lg.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, lg.Core().Enabled(zapcore.WarnLevel))
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}
