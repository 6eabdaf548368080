package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/elegance/identity-provider/internal/flagx"
	"github.com/elegance/identity-provider/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "24h" and integer nanoseconds.
//
// It is an intermediate DTO used only for reading JSON configuration files;
// after unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	DatabaseDSN      string         `json:"database_dsn"`
	RedisAddr        string         `json:"redis_addr"`
	RedisPassword    string         `json:"redis_password"`
	RedisDB          int            `json:"redis_db"`
	SessionTTL       timex.Duration `json:"session_ttl"`
	SessionCookie    string         `json:"session_cookie"`
	BcryptCost       int            `json:"bcrypt_cost"`
	LogLevel         string         `json:"log_level"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags, falling back to the CONFIG environment variable; when neither is
// set, no JSON file is loaded. An unreadable or invalid file panics: a
// half-applied configuration must not boot.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		jsonConfigFile = os.Getenv("CONFIG")
	}

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	// Seed the DTO with the current values so keys absent from the file
	// keep their defaults instead of collapsing to zero values.
	c := &JsonConfig{
		EndpointAddrHTTP: config.EndpointAddrHTTP,
		DatabaseDSN:      config.DatabaseDSN,
		RedisAddr:        config.RedisAddr,
		RedisPassword:    config.RedisPassword,
		RedisDB:          config.RedisDB,
		SessionTTL:       timex.Duration{Duration: config.SessionTTL},
		SessionCookie:    config.SessionCookie,
		BcryptCost:       config.BcryptCost,
		LogLevel:         config.LogLevel,
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.RedisAddr = c.RedisAddr
	config.RedisPassword = c.RedisPassword
	config.RedisDB = c.RedisDB
	config.SessionTTL = time.Duration(c.SessionTTL.Duration)
	config.SessionCookie = c.SessionCookie
	config.BcryptCost = c.BcryptCost
	config.LogLevel = c.LogLevel
}
