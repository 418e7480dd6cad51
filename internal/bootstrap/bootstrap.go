// Package bootstrap holds the startup sequence shared by every binary.
package bootstrap

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"

	"github.com/soledrop/soledrop-backend/pkg/config"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

// Load reads .env when present, then the environment, and returns the config
// together with a logger built from it. On failure the returned logger is a
// default one so the caller can still report the error.
func Load(service string) (*config.Config, *logger.Logger, error) {
	logg := logger.New(logger.Options{ServiceName: service})

	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, logg, err
		}
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, logg, err
	}
	cfg.Service.Kind = service
	return cfg, Logger(service, cfg.App), nil
}

// Logger builds the service logger from app settings.
func Logger(service string, app config.AppConfig) *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: service,
		Environment: app.Env,
		Level:       app.LogLevel,
		Format:      app.LogFormat,
		WarnStack:   app.LogWarnStack,
	})
}
