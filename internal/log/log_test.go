package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHelpersWriteToSetLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	Debugw("raster loaded", "path", "b04.jp2")
	Infow("product saved", "path", "ndvi.tif")
	Warnw("index not cached", "date", "20190213")
	Errorw("panic", "error", "boom")
	Sync()

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "product saved", entries[1].Message)
	assert.Equal(t, "ndvi.tif", entries[1].ContextMap()["path"])
}

func TestInitLevels(t *testing.T) {
	require.NoError(t, Init(false))
	assert.False(t, GetSugaredLogger().Desugar().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init(true))
	assert.True(t, GetSugaredLogger().Desugar().Core().Enabled(zapcore.DebugLevel))
	SetLogger(zap.NewNop())
}
