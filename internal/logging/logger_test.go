package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, cats map[string]bool) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	install(zap.New(core), cats)
	t.Cleanup(func() { install(zap.NewNop(), nil) })
	return logs
}

func TestGet_NamesByCategory(t *testing.T) {
	logs := observe(t, nil)

	Get(CategoryAPI).Info("request %d sent", 3)
	APIWarn("slow response")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "request 3 sent", entries[0].Message)
	assert.Equal(t, "api", entries[0].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestGet_CachesLogger(t *testing.T) {
	observe(t, nil)
	assert.Same(t, Get(CategoryIntake), Get(CategoryIntake))
}

func TestCategoryFilter(t *testing.T) {
	logs := observe(t, map[string]bool{"anchor": false, "server": true})

	assert.False(t, IsCategoryEnabled(CategoryAnchor))
	assert.True(t, IsCategoryEnabled(CategoryServer))
	assert.True(t, IsCategoryEnabled(CategoryWatch), "unlisted categories default to enabled")

	AnchorDebug("hidden")
	Server("shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestWithRequestID(t *testing.T) {
	logs := observe(t, nil)

	WithRequestID(CategoryServer, "req-1").WithField("path", "/analyze").Info("handled")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "/analyze", fields["path"])
}

func TestTimer_StopWithThreshold(t *testing.T) {
	logs := observe(t, nil)

	timer := StartTimer(CategoryAnalyzer, "analyze")
	time.Sleep(2 * time.Millisecond)
	elapsed := timer.StopWithThreshold(time.Nanosecond)

	assert.GreaterOrEqual(t, elapsed, 2*time.Millisecond)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)

	StartTimer(CategoryAnalyzer, "fast").StopWithThreshold(time.Hour)
	assert.Equal(t, zapcore.DebugLevel, logs.All()[1].Level)
}

func TestDefaultIsNoop(t *testing.T) {
	install(nil, nil)
	assert.NotPanics(t, func() {
		Boot("nothing to see")
		Get(CategoryExtract).Error("still nothing")
	})
}

func TestInitialize(t *testing.T) {
	t.Cleanup(func() { install(zap.NewNop(), nil) })
	out := filepath.Join(t.TempDir(), "proofread.log")

	require.NoError(t, Initialize(Options{Level: "warn", Outputs: []string{out}}))
	Boot("below threshold")
	BootWarn("at threshold")
	require.NoError(t, Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "below threshold")
	assert.Contains(t, string(data), "at threshold")
	assert.Contains(t, string(data), `"logger":"boot"`)
}

func TestInitialize_DebugModeOverridesLevel(t *testing.T) {
	t.Cleanup(func() { install(zap.NewNop(), nil) })
	out := filepath.Join(t.TempDir(), "debug.log")

	require.NoError(t, Initialize(Options{Level: "error", DebugMode: true, Outputs: []string{out}}))
	BootDebug("visible")
	require.NoError(t, Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible")
}

func TestInitialize_BadLevel(t *testing.T) {
	assert.Error(t, Initialize(Options{Level: "loud"}))
}
