package scheduler

import (
	"codeberg.org/mutker/metrics-exporter/internal/logger"
	"github.com/robfig/cron/v3"
)

// cronLogger routes cron's own logging into the application logger. Cron
// logs every wakeup at info, which is debug for us.
type cronLogger struct {
	log logger.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
