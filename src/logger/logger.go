package logger

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

const DefaultSlowQueryThreshold = 200 * time.Millisecond

// LogrusLogger routes gorm's query log through the standard logrus logger.
type LogrusLogger struct {
	logger        *logrus.Logger
	level         logger.LogLevel
	slowThreshold time.Duration
}

func NewLogrusLogger() *LogrusLogger {
	return &LogrusLogger{
		logger:        logrus.StandardLogger(),
		level:         logger.Warn,
		slowThreshold: DefaultSlowQueryThreshold,
	}
}

func (l *LogrusLogger) WithSlowThreshold(d time.Duration) *LogrusLogger {
	newLogger := *l
	newLogger.slowThreshold = d
	return &newLogger
}

func (l *LogrusLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.level = level
	return &newLogger
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Info {
		l.logger.WithContext(ctx).Infof(msg, data...)
	}
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Warn {
		l.logger.WithContext(ctx).Warnf(msg, data...)
	}
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= logger.Error {
		l.logger.WithContext(ctx).Errorf(msg, data...)
	}
}

func (l *LogrusLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := logrus.Fields{
		"elapsed": elapsed,
		"rows":    rows,
		"sql":     sql,
	}

	// A missed lookup is an expected outcome for the store, not a failure.
	if errors.Is(err, logger.ErrRecordNotFound) {
		err = nil
	}

	switch {
	case err != nil && l.level >= logger.Error:
		l.logger.WithContext(ctx).WithFields(fields).Error(err)
	case elapsed > l.slowThreshold && l.level >= logger.Warn:
		l.logger.WithContext(ctx).WithFields(fields).Warnf("SLOW SQL >= %v", l.slowThreshold)
	case l.level >= logger.Info:
		l.logger.WithContext(ctx).WithFields(fields).Debug("SQL")
	}
}
