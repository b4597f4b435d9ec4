// Package main provides the Cantio CLI application entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"cantio/internal/core"
	"cantio/internal/extractor"
	"cantio/internal/flood"
	httpserver "cantio/internal/http"
	"cantio/internal/proxy"
	"cantio/internal/search"
	"cantio/internal/spotify"
	"cantio/pkg/musiclink"
)

const (
	envPrefix = "CANTIO"
	version   = "1.0.0"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cantio",
	Short: "Cantio - media URL to audio stream resolver",
	Long: `Cantio resolves media page URLs (YouTube, SoundCloud, Bandcamp, direct streams, ...)
into directly playable audio stream URLs. When the primary platform blocks automated
access, it searches alternate platforms for the same track.`,
	RunE: runCantio,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	registerFlags(rootCmd)

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func registerFlags(cmd *cobra.Command) {
	defaults := core.DefaultConfig()
	flags := cmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, console)")

	flags.String("server-host", defaults.Server.Host, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")
	flags.Duration("server-read-timeout", defaults.Server.ReadTimeout, "HTTP read timeout")
	flags.Duration("server-write-timeout", defaults.Server.WriteTimeout, "HTTP write timeout")
	flags.Int("server-rate-limit-per-minute", defaults.Server.RateLimitPerMinute,
		"Maximum /stream requests per client IP per minute (0 disables)")

	flags.Int("resolver-attempt-budget", defaults.Resolver.AttemptBudget, "Extraction attempts per URL")
	flags.Int("resolver-fallback-attempt-budget", defaults.Resolver.FallbackAttemptBudget,
		"Extraction attempts per fallback platform")
	flags.Duration("resolver-retry-base-delay", defaults.Resolver.RetryBaseDelay,
		"Backoff base delay, multiplied by the attempt number")
	flags.Duration("resolver-request-deadline", defaults.Resolver.RequestDeadline,
		"Overall deadline for one /stream request")
	flags.Duration("resolver-extract-timeout", defaults.Resolver.ExtractTimeout,
		"Timeout for a single extraction attempt")
	flags.Int("resolver-same-url-limit-per-minute", defaults.Resolver.SameURLLimitPerMinute,
		"Maximum resolutions of the same URL per minute (0 disables)")

	flags.Bool("proxy-enabled", defaults.Proxy.Enabled, "Route extraction attempts through discovered proxies")
	flags.Int("proxy-max-size", defaults.Proxy.MaxSize, "Maximum number of pooled proxies")
	flags.Float64("proxy-reuse-probability", defaults.Proxy.ReuseProbability,
		"Probability of reusing a pooled proxy instead of discovering a new one")
	flags.Duration("proxy-discovery-timeout", defaults.Proxy.DiscoveryTimeout, "Timeout for one proxy discovery")
	flags.Bool("proxy-require-https", defaults.Proxy.RequireHTTPS, "Only accept proxies that tunnel HTTPS")
	flags.String("proxy-list-url", defaults.Proxy.ListURL, "Public proxy list (one host:port per line)")

	flags.String("extractor-executable", defaults.Extractor.Executable, "yt-dlp executable")
	flags.String("extractor-cookies-file", defaults.Extractor.CookiesFile,
		"Netscape cookies file passed to yt-dlp when present")

	platforms := make([]string, 0, len(defaults.Fallback.Platforms))
	for _, p := range defaults.Fallback.Platforms {
		platforms = append(platforms, p.String())
	}
	flags.StringSlice("fallback-platforms", platforms, "Ordered fallback platforms as name=search-prefix")
	flags.Bool("fallback-legacy-search-enabled", defaults.Fallback.LegacySearchEnabled,
		"Search the primary platform for an alternate upload before other platforms")

	flags.String("spotify-client-id", "", "Spotify client ID (enables query refinement)")
	flags.String("spotify-client-secret", "", "Spotify client secret")

	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	cfg, err := buildConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	config = cfg
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() (*core.Config, error) {
	cfg := core.DefaultConfig()

	configureServer(cfg)
	configureResolver(cfg)
	configureProxy(cfg)
	configureExtractor(cfg)
	configureSpotify(cfg)
	if err := configureFallback(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Server.ReadTimeout = viper.GetDuration("server-read-timeout")
	cfg.Server.WriteTimeout = viper.GetDuration("server-write-timeout")
	cfg.Server.RateLimitPerMinute = viper.GetInt("server-rate-limit-per-minute")
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureResolver(cfg *core.Config) {
	cfg.Resolver.AttemptBudget = viper.GetInt("resolver-attempt-budget")
	cfg.Resolver.FallbackAttemptBudget = viper.GetInt("resolver-fallback-attempt-budget")
	cfg.Resolver.RetryBaseDelay = viper.GetDuration("resolver-retry-base-delay")
	cfg.Resolver.RequestDeadline = viper.GetDuration("resolver-request-deadline")
	cfg.Resolver.ExtractTimeout = viper.GetDuration("resolver-extract-timeout")
	cfg.Resolver.SameURLLimitPerMinute = viper.GetInt("resolver-same-url-limit-per-minute")
}

func configureProxy(cfg *core.Config) {
	cfg.Proxy.Enabled = viper.GetBool("proxy-enabled")
	cfg.Proxy.MaxSize = viper.GetInt("proxy-max-size")
	cfg.Proxy.ReuseProbability = viper.GetFloat64("proxy-reuse-probability")
	cfg.Proxy.DiscoveryTimeout = viper.GetDuration("proxy-discovery-timeout")
	cfg.Proxy.RequireHTTPS = viper.GetBool("proxy-require-https")
	cfg.Proxy.ListURL = viper.GetString("proxy-list-url")
}

func configureExtractor(cfg *core.Config) {
	cfg.Extractor.Executable = viper.GetString("extractor-executable")
	cfg.Extractor.CookiesFile = viper.GetString("extractor-cookies-file")
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
}

func configureFallback(cfg *core.Config) error {
	platforms, err := core.ParseAlternatePlatforms(splitList(viper.GetStringSlice("fallback-platforms")))
	if err != nil {
		return err
	}
	cfg.Fallback.Platforms = platforms
	cfg.Fallback.LegacySearchEnabled = viper.GetBool("fallback-legacy-search-enabled")
	return nil
}

// splitList also splits on commas; values from the environment arrive as one element.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runCantio(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting Cantio",
		zap.String("version", version),
		zap.Int("attempt_budget", config.Resolver.AttemptBudget),
		zap.Bool("proxy_enabled", config.Proxy.Enabled),
		zap.Bool("legacy_search_enabled", config.Fallback.LegacySearchEnabled),
		zap.Bool("spotify_refinement", config.Spotify.Enabled()),
		zap.Int("fallback_platforms", len(config.Fallback.Platforms)))

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	services := initializeServices(ctx)
	return runServices(ctx, services)
}

type services struct {
	httpServer *httpserver.Server
	guard      *flood.Guard
}

func initializeServices(ctx context.Context) *services {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := httpserver.NewMetrics(registry)

	ytdlp := extractor.New(config.Extractor, logger)

	retryOpts := []core.RetryOption{
		core.WithExtractTimeout(config.Resolver.ExtractTimeout),
		core.WithMetrics(metrics),
	}
	if pool := createProxyPool(metrics); pool != nil {
		retryOpts = append(retryOpts, core.WithProxies(pool))
	}
	retry := core.NewRetryController(ytdlp, core.LinearBackoff(config.Resolver.RetryBaseDelay),
		logger.Named("retry"), retryOpts...)

	metadata := core.NewMetadataChain(logger.Named("metadata"),
		core.NewOEmbedSource(musiclink.NewManager()),
		ytdlp,
	)

	fallbackOpts := []core.FallbackOption{core.WithFallbackMetrics(metrics)}
	if config.Fallback.LegacySearchEnabled {
		searchClient := &http.Client{Timeout: config.Resolver.ExtractTimeout}
		fallbackOpts = append(fallbackOpts, core.WithLegacySearch(search.NewDefault(searchClient, logger)))
	}
	if refiner := createQueryRefiner(ctx); refiner != nil {
		fallbackOpts = append(fallbackOpts, core.WithQueryRefiner(refiner))
	}
	fallback := core.NewFallbackEngine(metadata, config.Fallback.Platforms,
		config.Resolver.FallbackAttemptBudget, logger.Named("fallback"), fallbackOpts...)

	orchestrator := core.NewOrchestrator(retry, fallback, config.Resolver.AttemptBudget,
		metrics, logger.Named("resolver"))

	deps := httpserver.Dependencies{
		Resolver:        orchestrator,
		Metrics:         metrics,
		Gatherer:        registry,
		RequestDeadline: config.Resolver.RequestDeadline,
	}
	svcs := &services{}
	if config.Resolver.SameURLLimitPerMinute > 0 {
		svcs.guard = flood.New(config.Resolver.SameURLLimitPerMinute)
		deps.Guard = svcs.guard
	}
	svcs.httpServer = httpserver.NewServer(&config.Server, deps, logger)

	return svcs
}

func createProxyPool(metrics *httpserver.Metrics) *proxy.Pool {
	if !config.Proxy.Enabled {
		return nil
	}

	proxyLogger := logger.Named("proxy")
	discoverer := proxy.NewListDiscoverer(config.Proxy.ListURL, config.Proxy.DiscoveryTimeout,
		config.Proxy.RequireHTTPS, proxyLogger)

	logger.Info("Proxy rotation enabled",
		zap.Int("max_size", config.Proxy.MaxSize),
		zap.Float64("reuse_probability", config.Proxy.ReuseProbability))

	return proxy.NewPool(config.Proxy.MaxSize, config.Proxy.ReuseProbability, discoverer, proxyLogger,
		proxy.WithSizeObserver(metrics.SetProxyPoolSize))
}

// createQueryRefiner returns nil when Spotify is not configured or rejects the credentials.
func createQueryRefiner(ctx context.Context) core.QueryRefiner {
	if !config.Spotify.Enabled() {
		return nil
	}

	client := spotify.NewClient(&config.Spotify, logger)
	if err := client.Authenticate(ctx); err != nil {
		logger.Warn("Spotify query refinement disabled", zap.Error(err))
		return nil
	}
	return client
}

func runServices(ctx context.Context, svcs *services) error {
	if svcs.guard != nil {
		defer svcs.guard.Stop()
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	logger.Info("Cantio started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("Cantio stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Cantio stopped gracefully")
	return nil
}

func validateConfig(cfg *core.Config) error {
	var errs []error

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d is out of range", cfg.Server.Port))
	}
	if cfg.Server.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("server rate limit must not be negative"))
	}

	if cfg.Resolver.AttemptBudget < 1 {
		errs = append(errs, fmt.Errorf("attempt budget must be at least 1, got %d", cfg.Resolver.AttemptBudget))
	}
	if cfg.Resolver.FallbackAttemptBudget < 1 {
		errs = append(errs, fmt.Errorf("fallback attempt budget must be at least 1, got %d",
			cfg.Resolver.FallbackAttemptBudget))
	}
	if cfg.Resolver.RetryBaseDelay < 0 {
		errs = append(errs, errors.New("retry base delay must not be negative"))
	}
	if cfg.Resolver.ExtractTimeout <= 0 || cfg.Resolver.RequestDeadline <= 0 {
		errs = append(errs, errors.New("extract timeout and request deadline must be positive"))
	}
	if cfg.Resolver.SameURLLimitPerMinute < 0 {
		errs = append(errs, errors.New("same-URL limit must not be negative"))
	}

	if cfg.Proxy.Enabled {
		if cfg.Proxy.MaxSize < 1 {
			errs = append(errs, fmt.Errorf("proxy pool size must be at least 1, got %d", cfg.Proxy.MaxSize))
		}
		if cfg.Proxy.ReuseProbability < 0 || cfg.Proxy.ReuseProbability > 1 {
			errs = append(errs, fmt.Errorf("proxy reuse probability must be within [0,1], got %v",
				cfg.Proxy.ReuseProbability))
		}
		if cfg.Proxy.ListURL == "" {
			errs = append(errs, errors.New("proxy list URL is required when proxies are enabled"))
		}
	}

	if (cfg.Spotify.ClientID == "") != (cfg.Spotify.ClientSecret == "") {
		errs = append(errs, errors.New("spotify client ID and secret must be set together"))
	}

	return errors.Join(errs...)
}
