package infra

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormLogger "gorm.io/gorm/logger"
)

// slowQueryThreshold 超过该耗时的 SQL 记为慢查询
const slowQueryThreshold = 200 * time.Millisecond

// gormZapLogger 把 GORM 日志转发到 Zap，级别跟随应用日志配置。
// ErrRecordNotFound 属于业务可预期情况，不作为错误输出。
type gormZapLogger struct {
	zl    *zap.Logger
	level gormLogger.LogLevel
}

// NewGormZapLogger 按应用日志级别创建 GORM 日志适配器
func NewGormZapLogger(zl *zap.Logger, appLevel string) gormLogger.Interface {
	level := gormLogger.Warn
	switch appLevel {
	case "debug":
		level = gormLogger.Info
	case "error":
		level = gormLogger.Error
	}
	return &gormZapLogger{zl: zl, level: level}
}

func (l *gormZapLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Info {
		l.zl.Sugar().Infof(msg, data...)
	}
}

func (l *gormZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Warn {
		l.zl.Sugar().Warnf(msg, data...)
	}
}

func (l *gormZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Error {
		l.zl.Sugar().Errorf(msg, data...)
	}
}

// Trace 记录 SQL 执行情况：错误、慢查询，debug 级别下记录全部语句
func (l *gormZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormLogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	switch {
	case err != nil && !errors.Is(err, gormLogger.ErrRecordNotFound):
		l.zl.Error("SQL 执行错误", append(fields, zap.Error(err))...)
	case elapsed > slowQueryThreshold:
		l.zl.Warn("SQL 慢查询", fields...)
	case l.level >= gormLogger.Info:
		l.zl.Debug("SQL 执行", fields...)
	}
}
