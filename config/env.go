package config

import (
	"strconv"
	"time"
)

// Environment variables read by ApplyEnv.
const (
	EnvListen        = "VOXLINK_LISTEN"
	EnvLogLevel      = "VOXLINK_LOG_LEVEL"
	EnvDatabaseDSN   = "VOXLINK_DATABASE_DSN"
	EnvJWTSecret     = "VOXLINK_JWT_SECRET"
	EnvSearchTTL     = "VOXLINK_CACHE_SEARCH_TTL"
	EnvDetailTTL     = "VOXLINK_CACHE_DETAIL_TTL"
	EnvMaxTTL        = "VOXLINK_CACHE_MAX_TTL"
	EnvMaxLimit      = "VOXLINK_SEARCH_MAX_LIMIT"
	EnvProbeInterval = "VOXLINK_PROBE_INTERVAL"
)

// ApplyEnv fills fields the file left unset from the environment. lookup
// is usually os.LookupEnv. Malformed numeric or duration values are
// ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	setString := func(dst *string, key string) {
		if v, ok := lookup(key); ok && *dst == "" {
			*dst = v
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if v, ok := lookup(key); ok && *dst == 0 {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setString(&c.Service.Listen, EnvListen)
	setString(&c.Database.DSN, EnvDatabaseDSN)
	setString(&c.Auth.JWTSecret, EnvJWTSecret)
	if v, ok := lookup(EnvLogLevel); ok && c.Observe.Logging.Level == "" {
		c.Observe.Logging.Enabled = true
		c.Observe.Logging.Level = v
	}
	setDuration(&c.Cache.SearchTTL, EnvSearchTTL)
	setDuration(&c.Cache.DetailTTL, EnvDetailTTL)
	setDuration(&c.Cache.MaxTTL, EnvMaxTTL)
	setDuration(&c.Health.ProbeInterval, EnvProbeInterval)
	if v, ok := lookup(EnvMaxLimit); ok && c.Search.MaxLimit == 0 {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.MaxLimit = n
		}
	}
}
