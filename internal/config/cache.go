package config

import (
	"net/http"
	"os"
	"strings"
	"time"
)

// CacheConfig controls the Redis response cache in front of the public
// listing reads.  Location suggestions only change when a listing is added,
// so they keep their entries for SearchTTL instead of TTL.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	SearchTTL    time.Duration
	KeyStrategy  string // route_query (default), route, method_route or method_route_query
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  Only GET and HEAD are ever
// cached; other methods listed in CACHE_METHODS are dropped.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(getenv("CACHE_METHODS", http.MethodGet)),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		SearchTTL:    envDur("CACHE_SEARCH_TTL", 5*time.Minute),
		KeyStrategy:  getenv("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       getenv("CACHE_PREFIX", "staybook:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.SearchTTL < cfg.TTL {
		cfg.SearchTTL = cfg.TTL
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return cfg
}

// WithTTL returns a copy of c whose entries live for ttl.
func (c CacheConfig) WithTTL(ttl time.Duration) CacheConfig {
	c.TTL = ttl
	return c
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		switch p = strings.ToUpper(strings.TrimSpace(p)); p {
		case http.MethodGet, http.MethodHead:
			m[p] = true
		}
	}
	return m
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
