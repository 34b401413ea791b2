package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophidentity/internal/flagx"
	"github.com/dmitrijs2005/gophidentity/internal/timex"
)

// JsonConfig is the on-disk shape of the optional config file. Durations
// accept "720h" style strings or integer nanoseconds. Only fields present in
// the file override the defaults. There is no bypass field.
type JsonConfig struct {
	Env              *string         `json:"env"`
	HTTPAddr         *string         `json:"http_addr"`
	GRPCAddr         *string         `json:"grpc_addr"`
	DatabaseDSN      *string         `json:"database_dsn"`
	LogLevel         *string         `json:"log_level"`
	SessionSecret    *string         `json:"session_secret"`
	ServiceSecret    *string         `json:"service_secret"`
	TokenIssuer      *string         `json:"token_issuer"`
	SessionTokenTTL  *timex.Duration `json:"session_token_ttl"`
	ServiceTokenTTL  *timex.Duration `json:"service_token_ttl"`
	BcryptCost       *int            `json:"bcrypt_cost"`
	HashWorkers      *int            `json:"hash_workers"`
	StoreTimeout     *timex.Duration `json:"store_timeout"`
	RedisAddr        *string         `json:"redis_addr"`
	LoginMaxAttempts *int            `json:"login_max_attempts"`
	LoginWindow      *timex.Duration `json:"login_window"`
}

// parseJson loads the file named by -c/-config, if any, into cfg.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}

	setString(&cfg.Env, c.Env)
	setString(&cfg.HTTPAddr, c.HTTPAddr)
	setString(&cfg.GRPCAddr, c.GRPCAddr)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.LogLevel, c.LogLevel)
	setString(&cfg.SessionSecret, c.SessionSecret)
	setString(&cfg.ServiceSecret, c.ServiceSecret)
	setString(&cfg.TokenIssuer, c.TokenIssuer)
	setString(&cfg.RedisAddr, c.RedisAddr)
	setInt(&cfg.BcryptCost, c.BcryptCost)
	setInt(&cfg.HashWorkers, c.HashWorkers)
	setInt(&cfg.LoginMaxAttempts, c.LoginMaxAttempts)
	if c.SessionTokenTTL != nil {
		cfg.SessionTokenTTL = c.SessionTokenTTL.Duration
	}
	if c.ServiceTokenTTL != nil {
		cfg.ServiceTokenTTL = c.ServiceTokenTTL.Duration
	}
	if c.StoreTimeout != nil {
		cfg.StoreTimeout = c.StoreTimeout.Duration
	}
	if c.LoginWindow != nil {
		cfg.LoginWindow = c.LoginWindow.Duration
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
