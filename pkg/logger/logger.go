package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var InfoLogger = zap.NewNop()

var (
	serviceName = "default"
)

type Config struct {
	Level       string
	Development bool
}

// Init строит zap-логгеры по конфигу и подменяет глобальные.
func Init(conf Config) error {
	zc := zap.NewProductionConfig()
	if conf.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if conf.Level != "" {
		lvl, err := zapcore.ParseLevel(conf.Level)
		if err != nil {
			return fmt.Errorf("parse log level %q: %w", conf.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	InfoLogger = l
	return nil
}

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

// L возвращает логгер с полем service для структурных событий.
func L() *zap.Logger {
	return InfoLogger.With(zap.String("service", serviceName))
}

func Sync() {
	_ = InfoLogger.Sync()
}

func Debug(format string, args ...interface{}) {
	L().Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	L().Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	L().Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	L().Error(fmt.Sprintf(format, args...))
}
