package logger

import (
	"context"
	"strings"
	"sync"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/configs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var once sync.Once

type Options struct {
	globalConfigs *configs.LoggerConfigs
}

type Optioner func(o *Options)

func WithGlobalConfigs(c *configs.LoggerConfigs) Optioner {
	return func(o *Options) {
		o.globalConfigs = c
	}
}

func Init(ctx context.Context, options ...Optioner) {
	once.Do(func() {
		opts := &Options{}
		for _, o := range options {
			o(opts)
		}
		if opts.globalConfigs == nil {
			opts.globalConfigs = &configs.LoggerConfigs{}
		}

		zl, err := buildConfig(opts.globalConfigs).Build(zap.AddCallerSkip(1))
		if err != nil {
			panic(err)
		}
		zap.ReplaceGlobals(zl)
	})
}

func buildConfig(c *configs.LoggerConfigs) zap.Config {
	var zc zap.Config
	if strings.EqualFold(c.Level, "debug") {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if len(c.Level) > 0 {
		if lvl, err := zapcore.ParseLevel(c.Level); err == nil {
			zc.Level = zap.NewAtomicLevelAt(lvl)
		}
	}
	switch c.Encoding {
	case "json", "console":
		zc.Encoding = c.Encoding
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc
}

func Logger() *zap.Logger {
	return zap.L()
}

func Close() {
	zap.L().Sync()
}

func SDebug(msg string, fields ...zap.Field) {
	zap.L().Debug(msg, fields...)
}

func SInfo(msg string, fields ...zap.Field) {
	zap.L().Info(msg, fields...)
}

func SWarn(msg string, fields ...zap.Field) {
	zap.L().Warn(msg, fields...)
}

func SError(msg string, fields ...zap.Field) {
	zap.L().Error(msg, fields...)
}

func SFatal(msg string, fields ...zap.Field) {
	zap.L().Fatal(msg, fields...)
}
