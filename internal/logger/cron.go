package logger

import "go.uber.org/zap"

// CronLogger routes scheduler logs into zap. It satisfies cron.Logger from robfig/cron.
type CronLogger struct {
	sugar *zap.SugaredLogger
}

func NewCronLogger(logger *zap.Logger) *CronLogger {
	return &CronLogger{sugar: WithFields(logger).Named("cron").Sugar()}
}

// Info receives scheduler routine messages (start, wake, run). They are noisy, so debug level.
func (l *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
