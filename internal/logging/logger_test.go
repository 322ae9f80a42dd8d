package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWithOptionsWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feetoken.log")
	logger, closer := NewWithOptions("debug", Options{File: path})
	logger.Debug("fee rate changed", "old_rate", 300, "new_rate", 250)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(data, &line))
	require.Equal(t, "fee rate changed", line["msg"])
	require.Equal(t, "DEBUG", line["level"])
	require.EqualValues(t, 250, line["new_rate"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	logger := New("loud")
	require.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	require.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}
