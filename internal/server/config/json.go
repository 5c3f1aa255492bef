package config

import (
	"encoding/json"
	"os"

	"github.com/dpolyakov/minimart/internal/flagx"
	"github.com/dpolyakov/minimart/internal/timex"
)

// JSONConfig mirrors Config for JSON unmarshalling. Interval fields use
// timex.Duration so both string values such as "1h" and integer nanoseconds
// parse. It is an intermediate DTO only; values are copied into the runtime
// Config after unmarshalling.
type JSONConfig struct {
	AuthAddr    string `json:"auth_addr"`
	CatalogAddr string `json:"catalog_addr"`
	GatewayAddr string `json:"gateway_addr"`

	DatabaseDSN string `json:"database_dsn"`

	AccessTokenSecret            string         `json:"access_token_secret"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost"`

	AuthServiceURL    string `json:"auth_service_url"`
	CatalogServiceURL string `json:"catalog_service_url"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
}

// parseJSON loads configuration from the JSON file named by the -c/-config
// flags. When neither flag is set, nothing is loaded. Zero-valued fields in
// the file leave the current Config value untouched, so the file only needs
// the keys it wants to override. An unreadable or invalid file panics:
// starting with half-applied configuration is worse than not starting.
func parseJSON(config *Config) {
	jsonConfigFile := flagx.JSONConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JSONConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIfNotEmpty(&config.AuthAddr, c.AuthAddr)
	setIfNotEmpty(&config.CatalogAddr, c.CatalogAddr)
	setIfNotEmpty(&config.GatewayAddr, c.GatewayAddr)
	setIfNotEmpty(&config.DatabaseDSN, c.DatabaseDSN)
	setIfNotEmpty(&config.AccessTokenSecret, c.AccessTokenSecret)
	setIfNotEmpty(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	setIfNotEmpty(&config.AuthServiceURL, c.AuthServiceURL)
	setIfNotEmpty(&config.CatalogServiceURL, c.CatalogServiceURL)
	setIfNotEmpty(&config.S3RootUser, c.S3RootUser)
	setIfNotEmpty(&config.S3RootPassword, c.S3RootPassword)
	setIfNotEmpty(&config.S3Bucket, c.S3Bucket)
	setIfNotEmpty(&config.S3Region, c.S3Region)
	setIfNotEmpty(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
