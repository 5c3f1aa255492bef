package config

import "os"

// parseEnv overlays values from environment variables. Only settings that
// are secrets or deployment-specific are read here; everything else goes
// through flags or the JSON file.
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("ACCESS_TOKEN_SECRET"); ok {
		config.AccessTokenSecret = v
	}
	if v, ok := os.LookupEnv("REFRESH_TOKEN_SECRET"); ok {
		config.RefreshTokenSecret = v
	}
	if v, ok := os.LookupEnv("S3_ROOT_USER"); ok {
		config.S3RootUser = v
	}
	if v, ok := os.LookupEnv("S3_ROOT_PASSWORD"); ok {
		config.S3RootPassword = v
	}
}
