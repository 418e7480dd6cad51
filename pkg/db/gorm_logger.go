package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/soledrop/soledrop-backend/pkg/logger"
)

// gormLogger forwards GORM's query log to the service logger. Only failed
// statements and statements slower than slow are reported; record-not-found
// is an expected outcome and stays quiet.
type gormLogger struct {
	logg *logger.Logger
	slow time.Duration
}

func newGormLogger(logg *logger.Logger, slow time.Duration) *gormLogger {
	return &gormLogger{logg: logg, slow: slow}
}

func (l *gormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return l }

func (l *gormLogger) Info(ctx context.Context, msg string, _ ...any) {
	if l.logg != nil {
		l.logg.Debug(ctx, "gorm: "+msg)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, _ ...any) {
	if l.logg != nil {
		l.logg.Warn(ctx, "gorm: "+msg)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, _ ...any) {
	if l.logg != nil {
		l.logg.Error(ctx, "gorm: "+msg, nil)
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logg == nil {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, context.Canceled)
	slow := l.slow > 0 && elapsed > l.slow
	if !failed && !slow {
		return
	}

	query, rows := fc()
	ctx = l.logg.WithFields(ctx, map[string]any{
		"sql":        query,
		"rows":       rows,
		"elapsed_ms": elapsed.Milliseconds(),
	})
	if failed {
		l.logg.WarnErr(ctx, "sql statement failed", err)
		return
	}
	l.logg.Warn(ctx, "slow sql statement")
}
