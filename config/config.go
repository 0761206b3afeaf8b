package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
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

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type ProxyConfig struct {
	DefaultBackend string   `mapstructure:"default_backend"`
	Routes         []string `mapstructure:"routes"` // PATH=BACKEND entries
	Rewrite        bool     `mapstructure:"rewrite"`
}

type LimitsConfig struct {
	MaxHeaderBytes int `mapstructure:"max_header_bytes"`
}

type TimeoutsConfig struct {
	HeaderRead string `mapstructure:"header_read"`
	Dial       string `mapstructure:"dial"`
}

type MetricsConfig struct {
	Address     string `mapstructure:"address"`
	EventBuffer int    `mapstructure:"event_buffer"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Load resolves configuration from defaults, an optional config.yaml,
// environment variables and, when given, a parsed pflag set. Flags win over
// the file and environment.
func Load(flags *pflag.FlagSet) (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("limits.max_header_bytes", 1<<20)
	viper.SetDefault("timeouts.header_read", "30s")
	viper.SetDefault("timeouts.dial", "10s")
	viper.SetDefault("metrics.event_buffer", 1000)
	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if flags != nil {
		bindFlags(flags)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func bindFlags(flags *pflag.FlagSet) {
	bindings := map[string]string{
		"proxy.routes":    "route",
		"proxy.rewrite":   "rewrite",
		"logging.level":   "log-level",
		"metrics.address": "metrics-address",
	}

	for key, name := range bindings {
		if f := flags.Lookup(name); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}

// RouteMap parses the PATH=BACKEND route entries into a prefix-to-backend
// map. Repeated prefixes keep the last entry.
func (c *Config) RouteMap() (map[string]string, error) {
	routes := make(map[string]string, len(c.Proxy.Routes))

	for _, entry := range c.Proxy.Routes {
		path, backend, err := ParseRoute(entry)
		if err != nil {
			return nil, err
		}
		routes[path] = backend
	}

	return routes, nil
}

// ParseRoute splits a PATH=BACKEND route entry, rejecting entries without
// exactly one '=' or whose path does not start with '/'.
func ParseRoute(entry string) (path, backend string, err error) {
	parts := strings.Split(entry, "=")
	if len(parts) != 2 {
		return "", "", validation.NewError("validation_invalid_route",
			"invalid route format: '"+entry+"'. Expected format: /path=ip:port")
	}

	path, backend = parts[0], parts[1]
	if !strings.HasPrefix(path, "/") {
		return "", "", validation.NewError("validation_invalid_route_path",
			"route path must start with '/': "+path)
	}

	return path, backend, nil
}

// HeaderReadTimeout returns the parsed header-read deadline; zero disables it.
func (c *Config) HeaderReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeouts.HeaderRead)
	return d
}

// DialTimeout returns the parsed backend-dial deadline; zero disables it.
func (c *Config) DialTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeouts.Dial)
	return d
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Proxy,
			validation.Required,
			validation.By(func(value interface{}) error {
				pc, ok := value.(ProxyConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ProxyConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.DefaultBackend,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&pc.Routes,
						validation.Each(validation.By(validateRouteEntry)),
					),
				)
			}),
		),
		validation.Field(&c.Limits,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LimitsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LimitsConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.MaxHeaderBytes,
						validation.Min(0),
					),
				)
			}),
		),
		validation.Field(&c.Timeouts,
			validation.By(func(value interface{}) error {
				tc, ok := value.(TimeoutsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a TimeoutsConfig")
				}
				return validation.ValidateStruct(&tc,
					validation.Field(&tc.HeaderRead,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&tc.Dial,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.Address,
						validation.By(validateOptionalHostPort),
					),
					validation.Field(&mc.EventBuffer,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
	)
}

func validateRouteEntry(value interface{}) error {
	entry, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	_, _, err := ParseRoute(entry)
	return err
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

func validateOptionalHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if addr == "" {
		return nil
	}

	return validateHostPort(addr)
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}
