package auth

import "go.uber.org/zap"

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger to Logger. A nil logger yields a no-op.
func NewZapLogger(logger *zap.Logger) Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return zapLogger{sugar: logger.Sugar()}
}

func (l zapLogger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

func (l zapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l zapLogger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

func (l zapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}
