package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold applies when GormLogConfig leaves it zero
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// lockErrorMarkers identify lock waits that gave up. Concurrent approvals on the
// same batch rows surface here rather than as generic SQL errors.
var lockErrorMarkers = []string{
	"deadlock detected",
	"could not obtain lock",
	"could not serialize access",
	"lock timeout",
	"database is locked",
}

// GormLogConfig configures the zap-backed GORM logger
type GormLogConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
	// LogNotFound also logs gorm.ErrRecordNotFound, which repositories map to
	// shared.ErrNotFound and callers usually expect
	LogNotFound bool
}

// GormLogger implements gormlogger.Interface on top of zap
type GormLogger struct {
	logger *zap.Logger
	cfg    GormLogConfig
}

// NewGormLogger creates a GORM logger writing to the "gorm" child of zapLogger
func NewGormLogger(zapLogger *zap.Logger, cfg GormLogConfig) *GormLogger {
	if cfg.SlowThreshold == 0 {
		cfg.SlowThreshold = DefaultSlowQueryThreshold
	}
	return &GormLogger{logger: zapLogger.Named("gorm"), cfg: cfg}
}

// LogMode returns a copy at the given level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.cfg.Level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...), contextFields(ctx)...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...), contextFields(ctx)...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...), contextFields(ctx)...)
	}
}

// Trace logs one statement: errors first, then slow statements, then everything
// at debug when the level is Info
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	slow := elapsed > l.cfg.SlowThreshold

	switch {
	case err != nil && l.cfg.Level >= gormlogger.Error:
		if !l.cfg.LogNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		if IsLockError(err) {
			l.logger.Warn("SQL lock wait failed", l.fields(ctx, elapsed, fc, zap.Error(err))...)
			return
		}
		l.logger.Error("SQL error", l.fields(ctx, elapsed, fc, zap.Error(err))...)
	case slow && l.cfg.Level >= gormlogger.Warn:
		l.logger.Warn("Slow SQL", l.fields(ctx, elapsed, fc, zap.Duration("threshold", l.cfg.SlowThreshold))...)
	case l.cfg.Level >= gormlogger.Info:
		l.logger.Debug("SQL", l.fields(ctx, elapsed, fc)...)
	}
}

func (l *GormLogger) fields(ctx context.Context, elapsed time.Duration, fc func() (string, int64), extra ...zap.Field) []zap.Field {
	sql, rows := fc()
	fields := append([]zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}, extra...)
	return append(fields, contextFields(ctx)...)
}

// IsLockError reports whether err is a lock wait that was aborted by the database
func IsLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range lockErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ParseGormLogLevel maps the database.log_level setting to a GORM level; unknown
// values mean warn
func ParseGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
