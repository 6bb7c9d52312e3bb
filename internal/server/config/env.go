package config

import (
	"os"
	"time"
)

// Environment variable names consumed by the server.
const (
	EnvRunAddress     = "RUN_ADDRESS"
	EnvDatabaseDSN    = "DATABASE_DSN"
	EnvAccessSecret   = "JWT_ACCESS_SECRET"
	EnvRefreshSecret  = "JWT_REFRESH_SECRET"
	EnvAccessExpires  = "JWT_ACCESS_EXPIRES"
	EnvRefreshExpires = "JWT_REFRESH_EXPIRES"
)

// parseEnv overlays configuration values from the environment. Lifetimes
// use time.ParseDuration syntax ("15m", "168h"); invalid values are
// ignored so a stray variable cannot silently zero a lifetime.
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv(EnvRunAddress); ok {
		config.RunAddress = v
	}
	if v, ok := os.LookupEnv(EnvDatabaseDSN); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv(EnvAccessSecret); ok {
		config.AccessTokenSecret = v
	}
	if v, ok := os.LookupEnv(EnvRefreshSecret); ok {
		config.RefreshTokenSecret = v
	}
	if v, ok := os.LookupEnv(EnvAccessExpires); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.AccessTokenValidityDuration = d
		}
	}
	if v, ok := os.LookupEnv(EnvRefreshExpires); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.RefreshTokenValidityDuration = d
		}
	}
}
