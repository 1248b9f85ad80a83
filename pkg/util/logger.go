package util

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitZapLog 控制台输出，日志级别取环境变量 LOG_LEVEL，默认 debug
func InitZapLog() *zap.Logger {
	config := zap.NewProductionConfig()
	config.DisableStacktrace = true
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime + ".000")
	config.Encoding = "console"
	level := zap.NewAtomicLevelAt(zap.DebugLevel)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
	}
	config.Level = level
	logger, _ := config.Build()
	return logger
}
