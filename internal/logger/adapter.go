package logger

import (
	"go.uber.org/zap"
)

// ZapToAntsLogger routes the worker pool's own messages into zap.
type ZapToAntsLogger struct {
	logger *zap.SugaredLogger
}

func NewZapToAntsLogger(zl *zap.Logger) *ZapToAntsLogger {
	return &ZapToAntsLogger{logger: zl.Named("pool").Sugar()}
}

func (l *ZapToAntsLogger) Printf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}
