package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dvmarques/sessionauth/internal/flagx"
	"github.com/dvmarques/sessionauth/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. It uses timex.Duration for lifetime fields, which
// allows parsing both string values such as "15m" and integer
// nanoseconds. After unmarshalling, its fields are copied into the
// runtime Config.
type JsonConfig struct {
	RunAddress                   string         `json:"run_address"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessTokenSecret            string         `json:"access_token_secret"`
	RefreshTokenSecret           string         `json:"refresh_token_secret"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags, if any. Missing file flag means nothing is loaded;
// an unreadable or invalid file panics, matching the flag layer.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.RunAddress != "" {
		config.RunAddress = c.RunAddress
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.AccessTokenSecret != "" {
		config.AccessTokenSecret = c.AccessTokenSecret
	}
	if c.RefreshTokenSecret != "" {
		config.RefreshTokenSecret = c.RefreshTokenSecret
	}
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	}
}
