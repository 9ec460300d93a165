package logger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func query() (string, int64) {
	return "SELECT * FROM subjects", 7
}

func TestLogrusLoggerTrace(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	prev := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer logrus.SetLevel(prev)

	ctx := context.Background()

	t.Run("errors are logged at error level", func(t *testing.T) {
		hook.Reset()
		NewLogrusLogger().Trace(ctx, time.Now(), query, fmt.Errorf("connection refused"))

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.ErrorLevel, entry.Level)
		assert.Equal(t, "SELECT * FROM subjects", entry.Data["sql"])
		assert.Equal(t, int64(7), entry.Data["rows"])
	})

	t.Run("record not found is not an error", func(t *testing.T) {
		hook.Reset()
		NewLogrusLogger().Trace(ctx, time.Now(), query, logger.ErrRecordNotFound)
		assert.Empty(t, hook.AllEntries())
	})

	t.Run("slow queries warn", func(t *testing.T) {
		hook.Reset()
		NewLogrusLogger().WithSlowThreshold(time.Millisecond).Trace(ctx, time.Now().Add(-time.Second), query, nil)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.WarnLevel, entry.Level)
		assert.Contains(t, entry.Message, "SLOW SQL")
	})

	t.Run("fast queries only at info mode", func(t *testing.T) {
		hook.Reset()
		NewLogrusLogger().Trace(ctx, time.Now(), query, nil)
		assert.Empty(t, hook.AllEntries())

		NewLogrusLogger().LogMode(logger.Info).Trace(ctx, time.Now(), query, nil)
		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.DebugLevel, entry.Level)
	})

	t.Run("silent mode", func(t *testing.T) {
		hook.Reset()
		NewLogrusLogger().LogMode(logger.Silent).Trace(ctx, time.Now(), query, fmt.Errorf("boom"))
		assert.Empty(t, hook.AllEntries())
	})
}

func TestLogrusLoggerLevels(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	ctx := context.Background()
	l := NewLogrusLogger()

	l.Info(ctx, "migrated %d tables", 8)
	assert.Empty(t, hook.AllEntries())

	l.Warn(ctx, "deprecated column %s", "foo")
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "deprecated column foo", hook.LastEntry().Message)

	l.LogMode(logger.Error).Warn(ctx, "hidden")
	assert.Len(t, hook.AllEntries(), 1)
}

func TestSetup(t *testing.T) {
	prev := logrus.GetLevel()
	defer logrus.SetLevel(prev)

	t.Setenv("LOG_LEVEL", "debug")
	Setup(false, false)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	t.Setenv("LOG_LEVEL", "nonsense")
	Setup(false, false)
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
