package config

import (
	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/pepemanager/imageapi"
)

// attachSentry forwards warn and above log entries to Sentry
func attachSentry(logger *zap.Logger, dsn string) *zap.Logger {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:     dsn,
		Release: "imageapi@" + imageapi.Version,
	})
	if err != nil {
		logger.Warn("sentry init", zap.Error(err))
		return logger
	}
	core, err := zapsentry.NewCore(zapsentry.Configuration{
		Level: zap.WarnLevel,
		Tags:  map[string]string{"component": "imageapi"},
	}, zapsentry.NewSentryClientFromClient(client))
	if err != nil {
		logger.Warn("sentry core", zap.Error(err))
		return logger
	}
	return zapsentry.AttachCoreToLogger(core, logger)
}
