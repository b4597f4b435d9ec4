package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultAttemptBudget is the number of extraction attempts per URL.
	DefaultAttemptBudget = 3
	// DefaultFallbackAttemptBudget is the reduced budget for each alternate platform search.
	DefaultFallbackAttemptBudget = 1
	// DefaultRetryBaseDelay is multiplied by the attempt index to get the backoff delay.
	DefaultRetryBaseDelay = 1500 * time.Millisecond
	// DefaultProxyPoolSize is the maximum number of proxies kept in the pool.
	DefaultProxyPoolSize = 5
	// DefaultProxyReuseProbability is the chance of reusing a pooled proxy instead of discovering one.
	DefaultProxyReuseProbability = 0.7
	// DefaultSameURLLimitPerMinute bounds how often one upstream URL is resolved per minute.
	DefaultSameURLLimitPerMinute = 6
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Resolver  ResolverConfig
	Proxy     ProxyConfig
	Extractor ExtractorConfig
	Fallback  FallbackConfig
	Spotify   SpotifyConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	RateLimitPerMinute int
}

type LogConfig struct {
	Level  string
	Format string
}

type ResolverConfig struct {
	AttemptBudget         int
	FallbackAttemptBudget int
	RetryBaseDelay        time.Duration
	RequestDeadline       time.Duration
	ExtractTimeout        time.Duration
	SameURLLimitPerMinute int
}

type ProxyConfig struct {
	Enabled          bool
	MaxSize          int
	ReuseProbability float64
	DiscoveryTimeout time.Duration
	RequireHTTPS     bool
	ListURL          string
}

type ExtractorConfig struct {
	Executable  string
	CookiesFile string
}

// AlternatePlatform is one fallback search backend, expressed as an extraction search directive.
type AlternatePlatform struct {
	Name   string
	Prefix string
}

// Directive builds the platform-scoped search directive for query.
func (p AlternatePlatform) Directive(query string) string {
	return p.Prefix + ":" + query
}

// ParseAlternatePlatforms reads "name=prefix" pairs, keeping their order.
func ParseAlternatePlatforms(entries []string) ([]AlternatePlatform, error) {
	platforms := make([]AlternatePlatform, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, prefix, ok := strings.Cut(entry, "=")
		name, prefix = strings.TrimSpace(name), strings.TrimSpace(prefix)
		if !ok || name == "" || prefix == "" {
			return nil, fmt.Errorf("invalid fallback platform %q, expected name=search-prefix", entry)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate fallback platform %q", name)
		}
		seen[name] = true
		platforms = append(platforms, AlternatePlatform{Name: name, Prefix: prefix})
	}
	return platforms, nil
}

// String renders the platform in the form accepted by ParseAlternatePlatforms.
func (p AlternatePlatform) String() string {
	return p.Name + "=" + p.Prefix
}

type FallbackConfig struct {
	Platforms           []AlternatePlatform
	LegacySearchEnabled bool
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

// Enabled reports whether Spotify credentials are configured.
func (c SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// DefaultAlternatePlatforms is the ordered list of alternates tried when the primary source blocks.
func DefaultAlternatePlatforms() []AlternatePlatform {
	return []AlternatePlatform{
		{Name: "soundcloud", Prefix: "scsearch1"},
		{Name: "bilibili", Prefix: "bilisearch1"},
		{Name: "niconico", Prefix: "nicosearch1"},
	}
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       60 * time.Second,
			RateLimitPerMinute: 60,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Resolver: ResolverConfig{
			AttemptBudget:         DefaultAttemptBudget,
			FallbackAttemptBudget: DefaultFallbackAttemptBudget,
			RetryBaseDelay:        DefaultRetryBaseDelay,
			RequestDeadline:       45 * time.Second,
			ExtractTimeout:        20 * time.Second,
			SameURLLimitPerMinute: DefaultSameURLLimitPerMinute,
		},
		Proxy: ProxyConfig{
			Enabled:          false,
			MaxSize:          DefaultProxyPoolSize,
			ReuseProbability: DefaultProxyReuseProbability,
			DiscoveryTimeout: 2 * time.Second,
			RequireHTTPS:     true,
			ListURL:          "https://api.proxyscrape.com/v2/?request=displayproxies&protocol=http&timeout=2000",
		},
		Extractor: ExtractorConfig{
			Executable: "yt-dlp",
		},
		Fallback: FallbackConfig{
			Platforms:           DefaultAlternatePlatforms(),
			LegacySearchEnabled: true,
		},
	}
}
