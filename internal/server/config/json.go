package config

import (
	"encoding/json"
	"os"

	"github.com/centavo-app/centavo/internal/flagx"
	"github.com/centavo-app/centavo/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	OpsEndpointAddr           string         `json:"ops_endpoint_addr"`
	DatabaseDSN               string         `json:"database_dsn"`
	AccessTokenTTL            timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL           timex.Duration `json:"refresh_token_ttl"`
	TokenSecretCacheTTL       timex.Duration `json:"token_secret_cache_ttl"`
	RefreshReplayDetection    bool           `json:"refresh_replay_detection"`
	CursorKeyTTL              timex.Duration `json:"cursor_key_ttl"`
	CursorKeyCacheTTL         timex.Duration `json:"cursor_key_cache_ttl"`
	CursorKeyRetention        timex.Duration `json:"cursor_key_retention"`
	CursorKeyRotationInterval timex.Duration `json:"cursor_key_rotation_interval"`
	CsrfTokenTTL              timex.Duration `json:"csrf_token_ttl"`
	PurgeInterval             timex.Duration `json:"purge_interval"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; when
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults and
// command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.OpsEndpointAddr = c.OpsEndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.AccessTokenTTL = c.AccessTokenTTL.Duration
	config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	config.TokenSecretCacheTTL = c.TokenSecretCacheTTL.Duration
	config.RefreshReplayDetection = c.RefreshReplayDetection
	config.CursorKeyTTL = c.CursorKeyTTL.Duration
	config.CursorKeyCacheTTL = c.CursorKeyCacheTTL.Duration
	config.CursorKeyRetention = c.CursorKeyRetention.Duration
	config.CursorKeyRotationInterval = c.CursorKeyRotationInterval.Duration
	config.CsrfTokenTTL = c.CsrfTokenTTL.Duration
	config.PurgeInterval = c.PurgeInterval.Duration
}
