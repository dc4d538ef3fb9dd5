package config

import (
	"os"
	"strconv"
)

// parseEnv overlays configuration from the environment variables that the
// deployment contract defines: DATABASE_URL (connection string), PORT
// (listener port) and RETENTION_HOURS (room retention window). SECRET_KEY
// and STATIC_ASSET_PATH are read as well for container setups where flags
// are inconvenient.
func parseEnv(config *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("PORT"); v != "" {
		config.EndpointAddr = ":" + v
	}
	if v := os.Getenv("RETENTION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.RetentionHours = n
		}
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		config.SecretKey = v
	}
	if v := os.Getenv("STATIC_ASSET_PATH"); v != "" {
		config.StaticAssetPath = v
	}
}
