package config

import "time"

// QueryCacheConfig defines settings for the semantic query cache.  When
// RedisEnabled is false or no Redis client could be built, entries are kept
// in process memory instead.  StaleTime is how long a cached result is served
// without consulting the store; GCTime is how long a stale entry is kept
// around so it can still be patched after a mutation.  ReadRetries is the number of extra attempts
// a failed read gets; mutations are never retried.
type QueryCacheConfig struct {
	RedisEnabled bool
	StaleTime    time.Duration
	GCTime       time.Duration
	ReadRetries  int
	Prefix       string
}

// LoadQueryCacheConfig reads the QUERY_CACHE_* variables.
func LoadQueryCacheConfig() QueryCacheConfig {
	cfg := QueryCacheConfig{
		RedisEnabled: envBool("QUERY_CACHE_REDIS", true),
		StaleTime:    envDur("QUERY_CACHE_STALE_TIME", 30*time.Second),
		GCTime:       envDur("QUERY_CACHE_GC_TIME", 5*time.Minute),
		ReadRetries:  envInt("QUERY_RETRY", 1),
		Prefix:       envStr("QUERY_CACHE_PREFIX", "qc"),
	}
	if cfg.ReadRetries < 0 {
		cfg.ReadRetries = 0
	}
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = 30 * time.Second
	}
	if cfg.GCTime < cfg.StaleTime {
		cfg.GCTime = cfg.StaleTime
	}
	return cfg
}
