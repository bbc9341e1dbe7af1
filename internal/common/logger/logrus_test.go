package logger

import (
	"errors"
	"testing"

	"github.com/rizkirmdhn/vidsweep/internal/common/config"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UsesConfiguredLevel(t *testing.T) {
	cfg := config.Default()
	cfg.App.LogLevel = int(logrus.DebugLevel)

	log := New(cfg)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	formatter, ok := log.Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.True(t, formatter.FullTimestamp)
	assert.True(t, formatter.ForceColors)
}

func TestNew_ProductionDisablesColors(t *testing.T) {
	cfg := config.Default()
	cfg.App.Env = "production"

	formatter := New(cfg).Formatter.(*logrus.TextFormatter)
	assert.True(t, formatter.DisableColors)
	assert.False(t, formatter.ForceColors)
}

func TestComponentLogger_AddsComponentAndBoundFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	log := NewComponentLogger(base, "dedup").With("run_id", "abc")

	log.WithField("path", "/tmp/a").Info("Deleted duplicate file")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "dedup", entry.Data["component"])
	assert.Equal(t, "abc", entry.Data["run_id"])
	assert.Equal(t, "/tmp/a", entry.Data["path"])
}

func TestComponentLogger_ExplicitComponentWins(t *testing.T) {
	base, hook := test.NewNullLogger()
	log := NewComponentLogger(base, "scraper")

	log.WithFields(logrus.Fields{"component": "browser"}).Warn("override")

	assert.Equal(t, "browser", hook.LastEntry().Data["component"])
}

func TestComponentLogger_WithDoesNotMutateParent(t *testing.T) {
	base, hook := test.NewNullLogger()
	parent := NewComponentLogger(base, "downloader")
	_ = parent.With("run_id", "child-only")

	parent.Entry().Info("plain")

	_, exists := hook.LastEntry().Data["run_id"]
	assert.False(t, exists)
}

func TestComponentLogger_WithError(t *testing.T) {
	base, hook := test.NewNullLogger()
	NewComponentLogger(base, "downloader").WithError(errors.New("boom")).Error("failed")

	entry := hook.LastEntry()
	assert.Equal(t, "boom", entry.Data[logrus.ErrorKey].(error).Error())
	assert.Equal(t, "downloader", entry.Data["component"])
}
