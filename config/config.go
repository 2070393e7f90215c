package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/lbengine/internal/server"
	"github.com/angeloszaimis/lbengine/internal/strategy"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	CheckHTTP = "http"
	CheckNoop = "noop"
)

var pathPrefix = regexp.MustCompile(`^/`)

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	Environment    string   `mapstructure:"environment"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type AdminConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	JWTSecret         string  `mapstructure:"jwt_secret"`
	JWTIssuer         string  `mapstructure:"jwt_issuer"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type HealthCheckConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Type             string `mapstructure:"type"`
	Interval         string `mapstructure:"interval"`
	Timeout          string `mapstructure:"timeout"`
	Path             string `mapstructure:"path"`
	FailureThreshold int    `mapstructure:"failure_threshold"`
	ResetTimeout     string `mapstructure:"reset_timeout"`
}

type StrategyConfig struct {
	Type            string `mapstructure:"type"`
	VirtualNodes    int    `mapstructure:"virtual_nodes"`
	SubsetSize      int    `mapstructure:"subset_size"`
	WeightedVariant string `mapstructure:"weighted_variant"`
}

// BackendConfig is one pool entry. Weight defaults to 1 and Active to true
// when omitted.
type BackendConfig struct {
	URL         string `mapstructure:"url"`
	Weight      *int   `mapstructure:"weight"`
	Active      *bool  `mapstructure:"active"`
	Connections int    `mapstructure:"connections"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	AddSource bool   `mapstructure:"add_source"`
}

type MetricsConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Admin       AdminConfig       `mapstructure:"admin"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Strategy    StrategyConfig    `mapstructure:"strategy"`
	Servers     []BackendConfig   `mapstructure:"servers"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// Loader reads configuration through its own viper instance.
type Loader struct {
	v *viper.Viper
}

// NewLoader searches for config.yaml in paths, or in ./config and the working
// directory when none are given.
func NewLoader(paths ...string) *Loader {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.jwt_issuer", "")
	v.SetDefault("admin.requests_per_second", 0)
	v.SetDefault("admin.burst", 10)
	v.SetDefault("health_check.enabled", true)
	v.SetDefault("health_check.type", CheckHTTP)
	v.SetDefault("health_check.interval", "2s")
	v.SetDefault("health_check.timeout", "1s")
	v.SetDefault("health_check.path", "/health")
	v.SetDefault("health_check.failure_threshold", 3)
	v.SetDefault("health_check.reset_timeout", "10s")
	v.SetDefault("strategy.type", strategy.TypeRoundRobin)
	v.SetDefault("strategy.virtual_nodes", strategy.DefaultVirtualNodes)
	v.SetDefault("strategy.subset_size", strategy.DefaultSubsetSize)
	v.SetDefault("strategy.weighted_variant", strategy.VariantSmooth)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.add_source", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.buffer_size", 1000)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Loader{v: v}
}

// Load reads config.yaml from ./config or the working directory.
func Load() (*Config, error) {
	return NewLoader().Load()
}

func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", l.v.ConfigFileUsed()))
	}

	return l.decode()
}

// File returns the config file in use, or "" when running on defaults.
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Watch calls onChange with the re-read configuration every time the config
// file is written. Invalid revisions are reported to onError and skipped.
// Watch is a no-op when no config file was loaded.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	if l.File() == "" {
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := l.decode()
		if err != nil {
			onError(fmt.Errorf("reload %s: %w", e.Name, err))
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server, validation.Required),
		validation.Field(&c.Admin),
		validation.Field(&c.Logging, validation.Required),
		validation.Field(&c.HealthCheck, validation.Required),
		validation.Field(&c.Servers,
			validation.Required,
			validation.Length(1, 0),
			validation.By(uniqueURLs),
		),
		validation.Field(&c.Strategy, validation.Required),
		validation.Field(&c.Metrics),
	)
}

func (sc ServerConfig) Validate() error {
	return validation.ValidateStruct(&sc,
		validation.Field(&sc.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&sc.Address,
			validation.Required,
			validation.By(validateHostPort),
		),
		validation.Field(&sc.TrustedProxies,
			validation.Each(validation.By(validateProxy)),
		),
	)
}

func (ac AdminConfig) Validate() error {
	return validation.ValidateStruct(&ac,
		validation.Field(&ac.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&ac.Burst, validation.Min(0)),
	)
}

func (lc LoggingConfig) Validate() error {
	return validation.ValidateStruct(&lc,
		validation.Field(&lc.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	)
}

func (hc HealthCheckConfig) Validate() error {
	return validation.ValidateStruct(&hc,
		validation.Field(&hc.Type,
			validation.Required,
			validation.In(CheckHTTP, CheckNoop),
		),
		validation.Field(&hc.Interval,
			validation.Required,
			validation.By(validatePositiveDuration),
		),
		validation.Field(&hc.Timeout,
			validation.Required,
			validation.By(validatePositiveDuration),
		),
		validation.Field(&hc.Path,
			validation.Required,
			validation.Match(pathPrefix).Error("must start with /"),
		),
		validation.Field(&hc.FailureThreshold,
			validation.Required,
			validation.Min(1),
		),
		validation.Field(&hc.ResetTimeout,
			validation.Required,
			validation.By(validatePositiveDuration),
		),
	)
}

func (sc StrategyConfig) Validate() error {
	return validation.ValidateStruct(&sc,
		validation.Field(&sc.Type,
			validation.Required,
			validation.In(toAny(strategy.Types())...),
		),
		validation.Field(&sc.VirtualNodes,
			validation.Required,
			validation.Min(1),
		),
		validation.Field(&sc.SubsetSize,
			validation.Required,
			validation.Min(1),
		),
		validation.Field(&sc.WeightedVariant,
			validation.In(strategy.VariantSmooth, strategy.VariantNaive),
		),
	)
}

func (bc BackendConfig) Validate() error {
	return validation.ValidateStruct(&bc,
		validation.Field(&bc.URL,
			validation.Required,
			validation.By(validateServerURL),
		),
		validation.Field(&bc.Weight, validation.Min(0)),
		validation.Field(&bc.Connections, validation.Min(0)),
	)
}

func (mc MetricsConfig) Validate() error {
	return validation.ValidateStruct(&mc,
		validation.Field(&mc.BufferSize, validation.Min(1)),
	)
}

// IntervalDuration returns the probe period. Validate guarantees it parses.
func (hc HealthCheckConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(hc.Interval)
	return d
}

func (hc HealthCheckConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(hc.Timeout)
	return d
}

func (hc HealthCheckConfig) ResetTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(hc.ResetTimeout)
	return d
}

// Pool converts the configured servers into the strategy pool.
func (c *Config) Pool() []server.Server {
	pool := make([]server.Server, 0, len(c.Servers))

	for _, bc := range c.Servers {
		s := server.Server{
			URL:         bc.URL,
			Active:      true,
			Weight:      1,
			Connections: bc.Connections,
		}
		if bc.Weight != nil {
			s.Weight = *bc.Weight
		}
		if bc.Active != nil {
			s.Active = *bc.Active
		}
		pool = append(pool, s)
	}

	return pool
}

// Factory returns the strategy construction parameters, seeded with Pool.
func (c *Config) Factory() strategy.FactoryConfig {
	return strategy.FactoryConfig{
		Type:            c.Strategy.Type,
		Servers:         c.Pool(),
		VirtualNodes:    c.Strategy.VirtualNodes,
		SubsetSize:      c.Strategy.SubsetSize,
		WeightedVariant: c.Strategy.WeightedVariant,
	}
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validatePositiveDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be positive")
	}

	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateProxy(value interface{}) error {
	entry, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if strings.Contains(entry, "/") {
		if _, _, err := net.ParseCIDR(entry); err != nil {
			return validation.NewError("validation_invalid_cidr", "must be a valid CIDR")
		}
		return nil
	}

	return is.IP.Validate(entry)
}

func uniqueURLs(value interface{}) error {
	servers, ok := value.([]BackendConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a server list")
	}

	seen := make(map[string]bool, len(servers))
	for _, s := range servers {
		if seen[s.URL] {
			return validation.NewError("validation_duplicate_url", fmt.Sprintf("duplicate server URL %q", s.URL))
		}
		seen[s.URL] = true
	}

	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
