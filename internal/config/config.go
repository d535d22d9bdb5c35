package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/compmap/internal/mapsearch"
	"github.com/sells-group/compmap/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store  store.Config      `yaml:"store" mapstructure:"store"`
	Server ServerConfig      `yaml:"server" mapstructure:"server"`
	Log    LogConfig         `yaml:"log" mapstructure:"log"`
	Map    mapsearch.Options `yaml:"map" mapstructure:"map"`
	Import ImportConfig      `yaml:"import" mapstructure:"import"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	ShutdownSecs       int      `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// ImportConfig configures bulk loading of property records.
type ImportConfig struct {
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	AccountID   string `yaml:"account_id" mapstructure:"account_id"`
	UserID      string `yaml:"user_id" mapstructure:"user_id"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMPMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	d := mapsearch.DefaultOptions()
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_secs", 15)
	v.SetDefault("server.shutdown_secs", 10)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("map.cluster_cutoff", d.ClusterCutoff)
	v.SetDefault("map.max_clusters", d.MaxClusters)
	v.SetDefault("map.max_properties", d.MaxProperties)
	v.SetDefault("map.pin_epsilon", d.PinEpsilon)
	v.SetDefault("map.top_cities", d.TopCities)
	v.SetDefault("map.recent_limit", d.RecentLimit)
	v.SetDefault("map.default_page_size", d.DefaultPageSize)
	v.SetDefault("map.max_page_size", d.MaxPageSize)
	v.SetDefault("import.batch_size", 1000)
	v.SetDefault("import.concurrency", 2)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Every problem is
// reported, not just the first.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case store.DriverPostgres, store.DriverSQLite:
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}
	if strings.TrimSpace(c.Store.DatabaseURL) == "" {
		problems = append(problems, "store.database_url is required")
	}
	if c.Store.MinConns > c.Store.MaxConns && c.Store.MaxConns > 0 {
		problems = append(problems, "store.min_conns must not exceed store.max_conns")
	}

	if c.Map.ClusterCutoff < 0 || c.Map.ClusterCutoff > 30 {
		problems = append(problems, "map.cluster_cutoff must be between 0 and 30")
	}
	if c.Map.MaxPageSize > 0 && c.Map.DefaultPageSize > c.Map.MaxPageSize {
		problems = append(problems, "map.default_page_size must not exceed map.max_page_size")
	}
	if c.Map.PinEpsilon < 0 {
		problems = append(problems, "map.pin_epsilon must be >= 0")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
		if c.Server.RateLimit < 0 {
			problems = append(problems, "server.rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
			problems = append(problems, "server.rate_burst must be >= 1 when rate limiting is enabled")
		}
	case "import":
		if c.Import.BatchSize < 1 {
			problems = append(problems, "import.batch_size must be >= 1")
		}
		if c.Import.Concurrency < 1 || c.Import.Concurrency > 16 {
			problems = append(problems, "import.concurrency must be between 1 and 16")
		}
	case "query", "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
